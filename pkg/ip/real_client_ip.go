package ip

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Parser extracts the end-user IP address from a forwarding header set by the
// upstream reverse proxy, falling back to the connection's remote address.
type Parser struct {
	header string
}

// NewParser builds a Parser reading the given header. An empty header name
// means only the remote address is consulted.
func NewParser(header string) *Parser {
	return &Parser{header: http.CanonicalHeaderKey(header)}
}

// GetClientIP obtains the perceived end-user IP address of the request.
// Forwarding headers share the X-Forwarded-For format: each proxy appends
// itself comma separated, so only the first entry is the client recorded by
// the first proxy. Entries may carry a port ("<ip>:<port>", "[<ip6>]:<port>").
func (p *Parser) GetClientIP(req *http.Request) (net.IP, error) {
	if p.header != "" {
		if value := req.Header.Get(p.header); value != "" {
			return parseForwardedEntry(value, p.header)
		}
	}
	return remoteIP(req)
}

// GetClientString returns the client IP as a string, or "" if it cannot be
// determined. Intended for log decoration where failure is not actionable.
func (p *Parser) GetClientString(req *http.Request) string {
	ip, err := p.GetClientIP(req)
	if err != nil || ip == nil {
		return ""
	}
	return ip.String()
}

func parseForwardedEntry(value, header string) (net.IP, error) {
	if commaIndex := strings.IndexRune(value, ','); commaIndex != -1 {
		value = value[:commaIndex]
	}
	value = strings.TrimSpace(value)

	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}

	ip := net.ParseIP(value)
	if ip == nil {
		return nil, fmt.Errorf("unable to parse ip (%s) from %s header", value, header)
	}
	return ip, nil
}

func remoteIP(req *http.Request) (net.IP, error) {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		// RemoteAddr is usually host:port but tests may set a bare IP.
		host = req.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("unable to parse ip from remote address (%s)", req.RemoteAddr)
	}
	return ip, nil
}
