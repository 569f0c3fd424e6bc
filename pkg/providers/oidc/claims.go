package oidc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitly/go-simplejson"
	"github.com/spf13/cast"
)

// ClaimExtractor reads claim values out of an ID token payload. Claim names
// may be dotted paths ("realm_access.roles"); a claim whose literal name
// contains a dot is tried first before the path interpretation.
type ClaimExtractor struct {
	claims *simplejson.Json
}

// NewClaimExtractor parses the payload segment of a raw compact JWT. The
// token must already have been signature-verified by the caller.
func NewClaimExtractor(rawIDToken string) (*ClaimExtractor, error) {
	parts := strings.Split(rawIDToken, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed jwt, expected 3 parts got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed jwt payload: %v", err)
	}

	claims, err := simplejson.NewJson(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token payload: %v", err)
	}

	return &ClaimExtractor{claims: claims}, nil
}

// GetClaim returns the raw claim value at the given name or path.
func (c *ClaimExtractor) GetClaim(claim string) (interface{}, bool) {
	if claim == "" {
		return nil, false
	}
	if value, ok := c.claims.CheckGet(claim); ok {
		return value.Interface(), true
	}
	value := c.claims.GetPath(strings.Split(claim, ".")...).Interface()
	return value, value != nil
}

// StringClaim returns the claim coerced to a string. Non-scalar values are
// rendered as JSON.
func (c *ClaimExtractor) StringClaim(claim string) (string, bool) {
	value, ok := c.GetClaim(claim)
	if !ok {
		return "", false
	}
	str, err := toString(value)
	if err != nil {
		return "", false
	}
	return str, true
}

// StringSliceClaim returns the claim coerced to a string slice. A scalar
// value becomes a one-element slice.
func (c *ClaimExtractor) StringSliceClaim(claim string) ([]string, bool) {
	value, ok := c.GetClaim(claim)
	if !ok {
		return nil, false
	}

	var sliceValues []interface{}
	switch v := value.(type) {
	case []interface{}:
		sliceValues = v
	default:
		sliceValues = []interface{}{v}
	}

	out := make([]string, 0, len(sliceValues))
	for _, v := range sliceValues {
		str, err := toString(v)
		if err != nil {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// ProjectStrings captures each listed claim path as a string, keyed by path.
// Absent claims are skipped.
func (c *ClaimExtractor) ProjectStrings(paths []string) map[string]string {
	if len(paths) == 0 {
		return nil
	}
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		if value, ok := c.StringClaim(path); ok {
			out[path] = value
		}
	}
	return out
}

// toString coerces a value into a string. Non-string scalars use their
// natural rendering; everything else is marshalled to JSON.
func toString(value interface{}) (string, error) {
	if str, err := cast.ToStringE(value); err == nil {
		return str, nil
	}

	jsonStr, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(jsonStr), nil
}
