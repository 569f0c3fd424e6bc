package options

import (
	"net/url"
	"time"
)

// Options holds the full gateway configuration, loaded from the YAML config
// file. Field names map to snake_case config keys.
type Options struct {
	// Bind is the address the gateway listens on, eg ":4180".
	Bind string `json:"bind,omitempty"`

	// MetricsBind optionally exposes the prometheus exporter on its own
	// address. Empty disables the exporter.
	MetricsBind string `json:"metrics_bind,omitempty"`

	// Public is the externally visible base URL of the gateway. Its path
	// component becomes the route prefix for all endpoints.
	Public string `json:"public,omitempty"`

	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	Scopes       string `json:"scopes,omitempty"`

	// JWTKey signs the session token. Fixed for the process lifetime;
	// rotation requires a restart.
	JWTKey string `json:"jwt_key,omitempty"`

	// SuccessHeader is the marker header set on every allowed response.
	SuccessHeader string `json:"success_header,omitempty"`

	Cookie Cookie `json:"cookie,omitempty"`

	// LoginCacheMinutes bounds the session lifetime.
	LoginCacheMinutes int `json:"login_cache_minutes,omitempty"`

	// LoginRenewSeconds is the lead time before session expiry at which a
	// silent refresh is attempted.
	LoginRenewSeconds int `json:"login_renew_seconds,omitempty"`

	// StateTTLMinutes bounds the login round-trip; the state cookie expires
	// after this many minutes.
	StateTTLMinutes int `json:"state_ttl_minutes,omitempty"`

	// ClockSkewSeconds is the tolerance applied when checking session
	// expiry across gateway replicas with drifting clocks.
	ClockSkewSeconds int `json:"clock_skew_seconds,omitempty"`

	// RefreshTokens enables storing the provider refresh token inside the
	// session and using it for silent renewal.
	RefreshTokens bool `json:"refresh_tokens,omitempty"`

	// HonorTokenExpiry caps the session lifetime at the provider access
	// token expiry.
	HonorTokenExpiry bool `json:"honor_token_expiry,omitempty"`

	// OIDCRefreshTimeSec is the interval at which the provider discovery
	// document is re-fetched in the background.
	OIDCRefreshTimeSec int `json:"oidc_refresh_time_sec,omitempty"`

	// ProviderTimeoutSec bounds every outbound call to the provider.
	ProviderTimeoutSec int `json:"provider_timeout_sec,omitempty"`

	// RequiredRoles must all be present on a session for it to be allowed.
	RequiredRoles []string `json:"required_roles,omitempty"`

	// RolesClaim is the claim path holding the role list in the ID token.
	RolesClaim string `json:"roles_claim,omitempty"`

	// HeaderClaims maps response header names to claim paths projected on
	// allowed responses.
	HeaderClaims map[string]string `json:"header_claims,omitempty"`

	// BypassCIDRs lists trusted networks that skip authentication.
	BypassCIDRs []BypassRule `json:"bypass_cidrs,omitempty"`

	// RealIPHeader names the forwarding header the ingress uses to convey
	// the original client IP on subrequests.
	RealIPHeader string `json:"real_ip_header,omitempty"`

	// Customizations apply per-endpoint overrides keyed on the original
	// request's host and path.
	Customizations []Customization `json:"customizations,omitempty"`

	Logging Logging `json:"logging,omitempty"`

	// internal values set during validation
	publicURL *url.URL
}

// Cookie configures the session cookie. The login state cookie derives its
// name and attributes from it.
type Cookie struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
	// Secure defaults to true. The session token is signed, not encrypted,
	// so its confidentiality depends on the transport.
	Secure   *bool  `json:"secure,omitempty"`
	SameSite string `json:"same_site,omitempty"`
}

// SecureEnabled resolves the Secure tristate with its default of true.
func (c *Cookie) SecureEnabled() bool {
	return c.Secure == nil || *c.Secure
}

// BypassRule is a trusted network with a label for logs and metrics.
type BypassRule struct {
	CIDR  string `json:"cidr,omitempty"`
	Label string `json:"label,omitempty"`
}

// Customization pairs an endpoint filter with overrides applied when the
// filter matches the original request.
type Customization struct {
	Filter EndpointFilter `json:"filter,omitempty"`
	Config EndpointConfig `json:"config,omitempty"`
}

// EndpointFilter matches the original request's host and path. All set
// criteria must match.
type EndpointFilter struct {
	Hostname      string `json:"hostname,omitempty"`
	HostnameRegex string `json:"hostname_regex,omitempty"`
	Path          string `json:"path,omitempty"`
	PathPrefix    string `json:"path_prefix,omitempty"`
	PathRegex     string `json:"path_regex,omitempty"`
}

// EndpointConfig is the override applied when the filter matches.
type EndpointConfig struct {
	RequiredRoles []string `json:"required_roles,omitempty"`
	Bypass        bool     `json:"bypass,omitempty"`
}

// Logging configures which log streams are emitted.
type Logging struct {
	Silent      bool `json:"silent,omitempty"`
	AuthEnabled *bool `json:"auth_enabled,omitempty"`
}

// NewOptions constructs an Options with every default applied.
func NewOptions() *Options {
	return &Options{
		Bind:               ":4180",
		Scopes:             "openid email profile roles",
		SuccessHeader:      "X-Auth-Ok",
		Cookie:             Cookie{Name: "_authgate"},
		LoginCacheMinutes:  240,
		LoginRenewSeconds:  1800,
		StateTTLMinutes:    5,
		ClockSkewSeconds:   60,
		OIDCRefreshTimeSec: 3600,
		ProviderTimeoutSec: 30,
		RolesClaim:         "realm_access.roles",
		RealIPHeader:       "X-Original-Forwarded-For",
	}
}

// SessionLifetime is the configured lifetime of newly minted sessions.
func (o *Options) SessionLifetime() time.Duration {
	return time.Duration(o.LoginCacheMinutes) * time.Minute
}

// RefreshLead is the lead time before expiry at which refresh is attempted.
func (o *Options) RefreshLead() time.Duration {
	return time.Duration(o.LoginRenewSeconds) * time.Second
}

// StateTTL bounds the lifetime of the login state cookie.
func (o *Options) StateTTL() time.Duration {
	return time.Duration(o.StateTTLMinutes) * time.Minute
}

// ClockSkew is the expiry check tolerance.
func (o *Options) ClockSkew() time.Duration {
	return time.Duration(o.ClockSkewSeconds) * time.Second
}

// ProviderTimeout bounds outbound provider calls.
func (o *Options) ProviderTimeout() time.Duration {
	return time.Duration(o.ProviderTimeoutSec) * time.Second
}

// DiscoveryInterval is the background discovery refresh period.
func (o *Options) DiscoveryInterval() time.Duration {
	return time.Duration(o.OIDCRefreshTimeSec) * time.Second
}

// GetPublicURL returns the parsed public base URL. Set during validation.
func (o *Options) GetPublicURL() *url.URL { return o.publicURL }

// SetPublicURL stores the parsed public base URL.
func (o *Options) SetPublicURL(u *url.URL) { o.publicURL = u }
