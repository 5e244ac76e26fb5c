package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseHostNoPort returns the host part (no port) from strings like "ip:port", "[v6]:port", or "ip".
func ParseHostNoPort(s string) string {
	if s == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return strings.Trim(s, "[]")
}

// FirstForwardedFor returns the left-most address of an X-Forwarded-For header.
func FirstForwardedFor(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}

// proxyHeaders are consulted in order when the proxy is trusted.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// ClientIP resolves the client address. Forwarding headers are read only
// with trustProxy, which must only be set when the origin is reachable
// solely through a trusted reverse proxy or tunnel (e.g. cloudflared).
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, h := range proxyHeaders {
			v := FirstForwardedFor(r.Header.Get(h))
			if ip := ParseHostNoPort(v); ip != "" {
				return ip
			}
		}
	}
	return ParseHostNoPort(r.RemoteAddr)
}

// IPMatcher matches addresses against single IPs and CIDR prefixes.
// Entries that parse as neither are ignored.
type IPMatcher struct {
	prefixes []netip.Prefix
}

func NewIPMatcher(list []string) *IPMatcher {
	m := &IPMatcher{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			addr = addr.Unmap()
			m.prefixes = append(m.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return m
}

func (m *IPMatcher) IsEmpty() bool {
	return len(m.prefixes) == 0
}

// Allow reports whether ip is covered by an entry. IPv4-mapped IPv6
// addresses match their IPv4 entries.
func (m *IPMatcher) Allow(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
