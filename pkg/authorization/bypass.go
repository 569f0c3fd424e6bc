package authorization

import (
	"fmt"
	"net"

	"github.com/authgate/authgate/pkg/apis/options"
	"github.com/authgate/authgate/pkg/ip"
)

// BypassMatcher answers whether a client address belongs to a trusted
// network that skips authentication entirely. Membership goes through a
// mask-grouped set so the per-request check stays cheap even with many
// rules; the labelled rule list is only walked on a hit to name the rule
// for logs and metrics.
type BypassMatcher struct {
	set   *ip.NetSet
	rules []labelledNet
}

type labelledNet struct {
	net   *net.IPNet
	label string
}

// NewBypassMatcher compiles the configured bypass rules. Rules are expected
// to have passed config validation; a bad CIDR still fails here rather than
// silently matching nothing.
func NewBypassMatcher(rules []options.BypassRule) (*BypassMatcher, error) {
	m := &BypassMatcher{set: ip.NewNetSet()}
	for _, rule := range rules {
		ipNet := ip.ParseIPNet(rule.CIDR)
		if ipNet == nil {
			return nil, fmt.Errorf("bypass rule %q has an invalid CIDR: %q", rule.Label, rule.CIDR)
		}
		m.set.AddIPNet(*ipNet)
		m.rules = append(m.rules, labelledNet{net: ipNet, label: rule.Label})
	}
	return m, nil
}

// Match reports whether the address is inside a trusted network, and if so
// the label of the first rule containing it.
func (m *BypassMatcher) Match(addr net.IP) (string, bool) {
	if addr == nil || !m.set.Has(addr) {
		return "", false
	}
	for _, rule := range m.rules {
		if rule.net.Contains(addr) {
			return rule.label, true
		}
	}
	return "", false
}
