package authorization

import (
	"net/http"
	"strings"
)

// ProjectClaims copies configured session claims onto response headers for
// the ingress to forward upstream. mapping is header name to claim path; a
// claim absent from the session leaves its header unset. Values are
// sanitized so a hostile claim value can never smuggle extra header lines.
func ProjectClaims(header http.Header, mapping map[string]string, claims map[string]string) {
	for name, path := range mapping {
		value, ok := claims[path]
		if !ok || value == "" {
			continue
		}
		header.Set(name, sanitizeHeaderValue(value))
	}
}

// sanitizeHeaderValue strips CR, LF and other control bytes from a header
// value.
func sanitizeHeaderValue(value string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
}
