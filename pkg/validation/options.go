package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/authgate/authgate/pkg/apis/options"
	"github.com/authgate/authgate/pkg/ip"
)

// Validate checks that the configuration is complete and coherent. Any
// problem is fatal: the gateway refuses to start rather than run with a
// partially working auth flow. Parsed values (the public URL) are stored
// back onto the options.
func Validate(o *options.Options) error {
	msgs := []string{}

	if o.Bind == "" {
		msgs = append(msgs, "missing setting: bind")
	}
	if o.ClientID == "" {
		msgs = append(msgs, "missing setting: client_id")
	}
	if o.ClientSecret == "" {
		msgs = append(msgs, "missing setting: client_secret")
	}
	if o.Issuer == "" {
		msgs = append(msgs, "missing setting: issuer")
	}
	if o.JWTKey == "" {
		msgs = append(msgs, "missing setting: jwt_key")
	}
	if o.Cookie.Name == "" {
		msgs = append(msgs, "missing setting: cookie.name")
	}

	msgs = append(msgs, validatePublicURL(o)...)
	msgs = append(msgs, validateCookie(o)...)
	msgs = append(msgs, validateHeaders(o)...)
	msgs = append(msgs, validateBypassRules(o)...)
	msgs = append(msgs, validateCustomizations(o)...)
	msgs = append(msgs, validateTimes(o)...)

	if len(msgs) != 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return nil
}

func validatePublicURL(o *options.Options) []string {
	if o.Public == "" {
		return []string{"missing setting: public"}
	}

	publicURL, err := url.Parse(o.Public)
	if err != nil {
		return []string{fmt.Sprintf("error parsing public URL: %v", err)}
	}
	if publicURL.Scheme != "http" && publicURL.Scheme != "https" {
		return []string{fmt.Sprintf("public URL must be http(s): %q", o.Public)}
	}
	if publicURL.Host == "" {
		return []string{fmt.Sprintf("public URL must be absolute: %q", o.Public)}
	}

	o.SetPublicURL(publicURL)
	return nil
}

func validateCookie(o *options.Options) []string {
	msgs := []string{}
	if !validCookieName(o.Cookie.Name) {
		msgs = append(msgs, fmt.Sprintf("invalid cookie name: %q", o.Cookie.Name))
	}
	switch o.Cookie.SameSite {
	case "", "none", "lax", "strict":
	default:
		msgs = append(msgs, fmt.Sprintf("cookie same_site (%q) must be one of ['', 'lax', 'strict', 'none']", o.Cookie.SameSite))
	}
	if !o.Cookie.SecureEnabled() && o.Cookie.SameSite == "none" {
		msgs = append(msgs, "cookie same_site 'none' requires a secure cookie")
	}
	return msgs
}

func validateHeaders(o *options.Options) []string {
	msgs := []string{}
	if o.SuccessHeader != "" && !validHeaderName(o.SuccessHeader) {
		msgs = append(msgs, fmt.Sprintf("invalid success_header: %q", o.SuccessHeader))
	}
	for name, claim := range o.HeaderClaims {
		if !validHeaderName(name) {
			msgs = append(msgs, fmt.Sprintf("invalid header_claims header name: %q", name))
		}
		if claim == "" {
			msgs = append(msgs, fmt.Sprintf("header_claims entry %q has an empty claim path", name))
		}
	}
	return msgs
}

func validateBypassRules(o *options.Options) []string {
	msgs := []string{}
	for _, rule := range o.BypassCIDRs {
		if ip.ParseIPNet(rule.CIDR) == nil {
			msgs = append(msgs, fmt.Sprintf("bypass rule %q has an invalid CIDR: %q", rule.Label, rule.CIDR))
		}
	}
	return msgs
}

func validateCustomizations(o *options.Options) []string {
	msgs := []string{}
	for i, c := range o.Customizations {
		if c.Filter.HostnameRegex != "" {
			if _, err := regexp.Compile(c.Filter.HostnameRegex); err != nil {
				msgs = append(msgs, fmt.Sprintf("customization %d has an invalid hostname_regex: %v", i, err))
			}
		}
		if c.Filter.PathRegex != "" {
			if _, err := regexp.Compile(c.Filter.PathRegex); err != nil {
				msgs = append(msgs, fmt.Sprintf("customization %d has an invalid path_regex: %v", i, err))
			}
		}
	}
	return msgs
}

func validateTimes(o *options.Options) []string {
	msgs := []string{}
	if o.LoginCacheMinutes <= 0 {
		msgs = append(msgs, "login_cache_minutes must be positive")
	}
	if o.LoginRenewSeconds < 0 {
		msgs = append(msgs, "login_renew_seconds must not be negative")
	}
	if o.StateTTLMinutes <= 0 {
		msgs = append(msgs, "state_ttl_minutes must be positive")
	}
	if o.ProviderTimeoutSec <= 0 {
		msgs = append(msgs, "provider_timeout_sec must be positive")
	}
	if o.OIDCRefreshTimeSec <= 0 {
		msgs = append(msgs, "oidc_refresh_time_sec must be positive")
	}
	return msgs
}

// validHeaderName reports whether name is a valid HTTP field name token.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isTokenChar(name[i]) {
			return false
		}
	}
	return true
}

// validCookieName relies on net/http's own sanitization check: a name that
// survives a cookie round trip unchanged is valid.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	c := &http.Cookie{Name: name}
	return strings.HasPrefix(c.String(), name+"=")
}

// isTokenChar reports whether b is an RFC 7230 tchar.
func isTokenChar(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
