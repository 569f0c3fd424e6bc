// Package requests provides the HTTP client used for all outbound calls to
// the identity provider.
package requests

import (
	"net/http"
	"time"
)

// UserAgent identifies the gateway on outbound provider requests.
const UserAgent = "authgate/1.0.0"

type userAgentTransport struct{}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	setDefaultUserAgent(r2.Header)
	return http.DefaultTransport.RoundTrip(r2)
}

// DefaultHTTPClient is used for discovery, token exchange and refresh calls.
// Per-call deadlines come from the request context; the client timeout is a
// backstop against a provider that never hangs up.
var DefaultHTTPClient = &http.Client{
	Transport: &userAgentTransport{},
	Timeout:   time.Minute,
}

func setDefaultUserAgent(header http.Header) {
	if header != nil && len(header.Values("User-Agent")) == 0 {
		header.Set("User-Agent", UserAgent)
	}
}
