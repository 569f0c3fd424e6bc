package ip

import (
	"net"
	"net/netip"
	"strings"
)

// ParseIPNet parses a CIDR network, or a bare IP address which is treated as
// a single-address network. Returns nil on any malformed input, including
// CIDRs with bits set to the right of the mask (eg 10.0.0.1/8).
func ParseIPNet(s string) *net.IPNet {
	if !strings.ContainsRune(s, '/') {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil
		}
		bits := addr.BitLen()
		return &net.IPNet{
			IP:   net.IP(addr.AsSlice()),
			Mask: net.CIDRMask(bits, bits),
		}
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil || prefix.Addr() != prefix.Masked().Addr() {
		return nil
	}
	return &net.IPNet{
		IP:   net.IP(prefix.Addr().AsSlice()),
		Mask: net.CIDRMask(prefix.Bits(), prefix.Addr().BitLen()),
	}
}
