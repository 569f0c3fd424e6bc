package cookies

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/authgate/authgate/pkg/apis/options"
	"github.com/authgate/authgate/pkg/logger"
)

// MakeCookie constructs a cookie from the given parameters. Cookies are
// always HttpOnly and scoped to the root path so the ingress can forward
// them on every subrequest.
func MakeCookie(req *http.Request, name string, value string, domain string, secure bool, expiration time.Duration, now time.Time, sameSite http.SameSite) *http.Cookie {
	if domain != "" {
		host := requestHost(req)
		if !strings.HasSuffix(host, domain) {
			logger.Printf("Warning: request host is %q but using configured cookie domain of %q", host, domain)
		}
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   secure,
		Expires:  now.Add(expiration),
		SameSite: sameSite,
	}
}

// MakeCookieFromOptions constructs a cookie based on the given cookie
// options, value and creation time.
func MakeCookieFromOptions(req *http.Request, name string, value string, opts *options.Cookie, expiration time.Duration, now time.Time) *http.Cookie {
	return MakeCookie(req, name, value, opts.Domain, opts.SecureEnabled(), expiration, now, ParseSameSite(opts.SameSite))
}

// requestHost returns the request host header or X-Forwarded-Host if present,
// with any port stripped.
func requestHost(req *http.Request) string {
	host := req.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = req.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// ParseSameSite maps a validated config string to its http.SameSite value.
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "":
		return http.SameSiteDefaultMode
	default:
		panic(fmt.Sprintf("Invalid value for SameSite: %s", v))
	}
}
