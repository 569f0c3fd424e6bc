package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesAppliesDefaults(t *testing.T) {
	opts, err := LoadBytes([]byte(`
public: https://auth.example.com/oauth
client_id: gateway
client_secret: hunter2
issuer: https://idp.example.com/realms/main
jwt_key: signing-key
cookie:
  name: _session
  domain: example.com
`))
	require.NoError(t, err)

	assert.Equal(t, ":4180", opts.Bind)
	assert.Equal(t, "openid email profile roles", opts.Scopes)
	assert.Equal(t, 240, opts.LoginCacheMinutes)
	assert.Equal(t, 1800, opts.LoginRenewSeconds)
	assert.Equal(t, "realm_access.roles", opts.RolesClaim)
	assert.Equal(t, "_session", opts.Cookie.Name)
	assert.Equal(t, "example.com", opts.Cookie.Domain)
	assert.True(t, opts.Cookie.SecureEnabled())
}

func TestLoadBytesFullDocument(t *testing.T) {
	opts, err := LoadBytes([]byte(`
bind: ":8080"
metrics_bind: ":9090"
public: https://auth.example.com/oauth
client_id: gateway
client_secret: hunter2
issuer: https://idp.example.com/realms/main
jwt_key: signing-key
success_header: X-Authenticated
required_roles:
  - Example Role
header_claims:
  X-Auth-Email: email
  X-Auth-Groups: realm_access.roles
bypass_cidrs:
  - cidr: 10.0.0.0/8
    label: internal
refresh_tokens: true
cookie:
  name: _session
  secure: false
customizations:
  - filter:
      path_prefix: /public/
    config:
      bypass: true
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", opts.Bind)
	assert.Equal(t, ":9090", opts.MetricsBind)
	assert.Equal(t, []string{"Example Role"}, opts.RequiredRoles)
	assert.Equal(t, "email", opts.HeaderClaims["X-Auth-Email"])
	require.Len(t, opts.BypassCIDRs, 1)
	assert.Equal(t, "10.0.0.0/8", opts.BypassCIDRs[0].CIDR)
	assert.Equal(t, "internal", opts.BypassCIDRs[0].Label)
	assert.True(t, opts.RefreshTokens)
	assert.False(t, opts.Cookie.SecureEnabled())
	require.Len(t, opts.Customizations, 1)
	assert.True(t, opts.Customizations[0].Config.Bypass)
}

func TestLoadBytesSubstitutesEnvironment(t *testing.T) {
	t.Setenv("TEST_CLIENT_SECRET", "from-env")

	opts, err := LoadBytes([]byte(`
public: https://auth.example.com/
client_id: gateway
client_secret: ${TEST_CLIENT_SECRET}
issuer: https://idp.example.com/
jwt_key: signing-key
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", opts.ClientSecret)
}

func TestLoadBytesRejectsUnknownKeys(t *testing.T) {
	_, err := LoadBytes([]byte(`
public: https://auth.example.com/
clientid: misspelled
`))
	assert.Error(t, err)
}
