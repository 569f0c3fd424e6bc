package authorization

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/pkg/apis/options"
)

func TestBypassMatcher(t *testing.T) {
	matcher, err := NewBypassMatcher([]options.BypassRule{
		{CIDR: "10.0.0.0/8", Label: "internal"},
		{CIDR: "192.168.1.0/24", Label: "office"},
		{CIDR: "2001:db8::/32", Label: "lab"},
		{CIDR: "172.16.0.1", Label: "monitor"},
	})
	require.NoError(t, err)

	testCases := []struct {
		addr  string
		label string
		match bool
	}{
		{addr: "10.1.2.3", label: "internal", match: true},
		{addr: "10.255.255.255", label: "internal", match: true},
		{addr: "11.0.0.1", match: false},
		{addr: "192.168.1.17", label: "office", match: true},
		{addr: "192.168.2.17", match: false},
		{addr: "2001:db8:1::1", label: "lab", match: true},
		{addr: "2001:db9::1", match: false},
		{addr: "172.16.0.1", label: "monitor", match: true},
		{addr: "172.16.0.2", match: false},
	}

	for _, tc := range testCases {
		t.Run(tc.addr, func(t *testing.T) {
			label, ok := matcher.Match(net.ParseIP(tc.addr))
			assert.Equal(t, tc.match, ok)
			assert.Equal(t, tc.label, label)
		})
	}
}

func TestBypassMatcherFirstRuleLabelWins(t *testing.T) {
	matcher, err := NewBypassMatcher([]options.BypassRule{
		{CIDR: "10.1.0.0/16", Label: "narrow"},
		{CIDR: "10.0.0.0/8", Label: "wide"},
	})
	require.NoError(t, err)

	label, ok := matcher.Match(net.ParseIP("10.1.2.3"))
	assert.True(t, ok)
	assert.Equal(t, "narrow", label)
}

func TestBypassMatcherEmpty(t *testing.T) {
	matcher, err := NewBypassMatcher(nil)
	require.NoError(t, err)

	_, ok := matcher.Match(net.ParseIP("10.1.2.3"))
	assert.False(t, ok)

	_, ok = matcher.Match(nil)
	assert.False(t, ok)
}

func TestBypassMatcherRejectsBadCIDR(t *testing.T) {
	_, err := NewBypassMatcher([]options.BypassRule{{CIDR: "10.0.0.1/8", Label: "bad"}})
	assert.Error(t, err)
}
