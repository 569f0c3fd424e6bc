package ip

import (
	"fmt"
	"net"
)

// NetSet is a lookup table answering whether a single IP address falls within
// a collection of CIDR networks.
//
// Networks are grouped by mask length, so membership is a masked map lookup
// per distinct mask rather than a scan over every network. Both 4-byte (IPv4)
// and 16-byte (IPv6) networks are supported; an IPv4 address never matches an
// IPv6 network and vice versa.
type NetSet struct {
	ip4Groups []maskGroup
	ip6Groups []maskGroup
}

// maskGroup holds all networks sharing one mask length.
type maskGroup struct {
	mask net.IPMask
	nets map[string]struct{}
}

// NewNetSet creates an empty NetSet.
func NewNetSet() *NetSet {
	return &NetSet{}
}

// AddIPNet adds a CIDR network to the set.
func (s *NetSet) AddIPNet(ipNet net.IPNet) {
	groups := s.groupsFor(ipNet.IP)
	ones, _ := ipNet.Mask.Size()

	for i := range *groups {
		if groupOnes, _ := (*groups)[i].mask.Size(); groupOnes == ones {
			(*groups)[i].nets[ipNet.IP.Mask(ipNet.Mask).String()] = struct{}{}
			return
		}
	}

	group := maskGroup{
		mask: ipNet.Mask,
		nets: map[string]struct{}{
			ipNet.IP.Mask(ipNet.Mask).String(): {},
		},
	}
	*groups = append(*groups, group)
}

// Has reports whether ip falls within any network in the set.
func (s *NetSet) Has(ip net.IP) bool {
	for _, group := range *s.groupsFor(ip) {
		masked := ip.Mask(group.mask)
		if masked == nil {
			continue
		}
		if _, ok := group.nets[masked.String()]; ok {
			return true
		}
	}
	return false
}

// groupsFor returns the group list matching the IP version.
func (s *NetSet) groupsFor(ip net.IP) *[]maskGroup {
	switch {
	case ip.To4() != nil:
		return &s.ip4Groups
	case ip.To16() != nil:
		return &s.ip6Groups
	default:
		panic(fmt.Sprintf("IP (%s) is neither 4-byte nor 16-byte", ip.String()))
	}
}
