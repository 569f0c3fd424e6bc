// Package sessions implements the signed, self-contained session token
// carried by the session cookie. The token is an HS256 JWT whose three
// segments are packed and lz4-compressed to stay within cookie size limits.
package sessions

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pierrec/lz4/v4"

	sessionsapi "github.com/authgate/authgate/pkg/apis/sessions"
	"github.com/authgate/authgate/pkg/encryption"
	"github.com/authgate/authgate/pkg/logger"
)

// ErrInvalidSession is returned for every decode failure: malformed value,
// bad signature, wrong issuer or expiry. The distinct cause is only logged,
// never returned, so a caller probing the endpoint cannot learn which check
// rejected it.
var ErrInvalidSession = errors.New("invalid session")

// Codec encodes and decodes SessionStates. The signing key is fixed for the
// process lifetime; rotation requires a restart.
type Codec struct {
	key    []byte
	issuer string
	skew   time.Duration
}

// NewCodec builds a Codec signing with the given secret. The issuer is
// stamped into every token and verified on decode, which stops tokens minted
// by a gateway for a different deployment from being replayed here. Expiry
// checks treat a token within skew of its expiry as already expired.
func NewCodec(secret, issuer string, skew time.Duration) *Codec {
	return &Codec{
		key:    encryption.SecretBytes(secret),
		issuer: issuer,
		skew:   skew,
	}
}

// tokenClaims is the wire form of a SessionState.
type tokenClaims struct {
	jwt.RegisteredClaims

	Email        string            `json:"email,omitempty"`
	Roles        []string          `json:"roles,omitempty"`
	Claims       map[string]string `json:"claims,omitempty"`
	RefreshToken string            `json:"rt,omitempty"`
}

// Encode builds the signed compact cookie value for a session.
func (c *Codec) Encode(s *sessionsapi.SessionState) (string, error) {
	if !s.ExpiresOn.After(s.CreatedAt) {
		return "", fmt.Errorf("session expiry (%s) must be after creation (%s)", s.ExpiresOn, s.CreatedAt)
	}

	claims := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   s.Subject,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresOn),
		},
		Email:        s.Email,
		Roles:        s.Roles,
		Claims:       s.Claims,
		RefreshToken: s.RefreshToken,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("error signing session token: %w", err)
	}

	return pack(signed)
}

// Decode verifies and parses a cookie value produced by Encode. Any failure
// yields ErrInvalidSession.
func (c *Codec) Decode(value string) (*sessionsapi.SessionState, error) {
	raw, err := unpack(value)
	if err != nil {
		return nil, c.reject("malformed token: %v", err)
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, c.reject("token verification failed: %v", err)
	}
	if !token.Valid {
		return nil, c.reject("token signature not valid")
	}

	if claims.Issuer != c.issuer {
		return nil, c.reject("token issuer mismatch")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, c.reject("token missing time claims")
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, c.reject("token expiry not after issue time")
	}

	session := &sessionsapi.SessionState{
		Subject:      claims.Subject,
		Email:        claims.Email,
		CreatedAt:    claims.IssuedAt.Time,
		ExpiresOn:    claims.ExpiresAt.Time,
		RefreshToken: claims.RefreshToken,
		Claims:       claims.Claims,
		Roles:        claims.Roles,
	}
	if session.IsExpired(c.skew) {
		return nil, c.reject("token expired")
	}

	return session, nil
}

// reject logs the internal decode failure cause and returns the uniform
// sentinel.
func (c *Codec) reject(format string, a ...interface{}) error {
	logger.Printf("session decode rejected: "+format, a...)
	return ErrInvalidSession
}

// pack strips the base64 envelope from the JWT's segments, joins the raw
// bytes and lz4-compresses the result. JWT segments are mostly JSON and
// compress well; the cookie stays comfortably under the 4kb browser limit.
func pack(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected 3 token segments, got %d", len(parts))
	}

	segments := make([][]byte, 0, len(parts))
	for _, part := range parts {
		segment, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return "", fmt.Errorf("error decoding token segment: %w", err)
		}
		segments = append(segments, segment)
	}

	// The header and payload are compact JSON and can never contain a raw
	// newline; only the trailing signature may, so SplitN on unpack is safe.
	body := bytes.Join(segments, []byte("\n"))

	buf := new(bytes.Buffer)
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(body); err != nil {
		return "", fmt.Errorf("error compressing token: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("error compressing token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// unpack reverses pack, reassembling the compact JWT.
func unpack(value string) (string, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("error decoding cookie value: %w", err)
	}

	zr := lz4.NewReader(bytes.NewReader(compressed))
	body, err := io.ReadAll(io.LimitReader(zr, maxTokenSize+1))
	if err != nil {
		return "", fmt.Errorf("error decompressing token: %w", err)
	}
	if len(body) > maxTokenSize {
		return "", fmt.Errorf("token exceeds %d bytes", maxTokenSize)
	}

	segments := bytes.SplitN(body, []byte("\n"), 3)
	if len(segments) != 3 {
		return "", fmt.Errorf("expected 3 token segments, got %d", len(segments))
	}

	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, base64.RawURLEncoding.EncodeToString(segment))
	}
	return strings.Join(parts, "."), nil
}

// maxTokenSize bounds decompression so a hostile cookie cannot balloon into
// an arbitrarily large allocation.
const maxTokenSize = 1 << 20
