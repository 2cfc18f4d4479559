package access

import (
	"fmt"
	"net"
	"strings"
)

// Allowlist is the set of network origins permitted to connect.
//
// Entries are either single addresses ("10.0.0.5", "::1") or CIDR ranges
// ("10.0.0.0/8"). Patterns are parsed once at construction; the list is
// immutable afterwards.
type Allowlist struct {
	entries []allowEntry
}

type allowEntry struct {
	raw string
	ip  net.IP
	net *net.IPNet
}

// ParseAllowlist parses address and CIDR patterns.
//
// Returns an error naming the first entry that is neither a valid IP address
// nor a valid CIDR range.
func ParseAllowlist(patterns []string) (*Allowlist, error) {
	entries := make([]allowEntry, 0, len(patterns))

	for i, p := range patterns {
		pattern := strings.TrimSpace(p)

		if strings.Contains(pattern, "/") {
			_, ipNet, err := net.ParseCIDR(pattern)
			if err != nil {
				return nil, fmt.Errorf("allowed_ips[%d]: invalid CIDR range %q: %w", i, p, err)
			}
			entries = append(entries, allowEntry{raw: pattern, net: ipNet})
			continue
		}

		ip := net.ParseIP(pattern)
		if ip == nil {
			return nil, fmt.Errorf("allowed_ips[%d]: invalid IP address %q", i, p)
		}
		entries = append(entries, allowEntry{raw: pattern, ip: ip})
	}

	return &Allowlist{entries: entries}, nil
}

// Contains reports whether ip equals any address entry or falls inside any
// CIDR entry. IPv4-mapped IPv6 addresses match their IPv4 form.
func (a *Allowlist) Contains(ip net.IP) bool {
	if a == nil || ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	for _, e := range a.entries {
		if e.net != nil {
			if e.net.Contains(ip) {
				return true
			}
			continue
		}
		if e.ip.Equal(ip) {
			return true
		}
	}
	return false
}

// Patterns returns the configured patterns in their original order.
func (a *Allowlist) Patterns() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.raw
	}
	return out
}

// Len returns the number of entries.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}
