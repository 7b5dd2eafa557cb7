// Network parser: IPv4/IPv6 prefixes for the CIDR index.
//
// Parsing itself rides on net/netip — no example in the retrieval pack
// supplies an IP-prefix parser or a dependency that wraps one, and
// reimplementing dotted-quad/colon-hex parsing by hand would just be a
// worse net/netip. What's ours is the spec's canonicalization, the
// valid-for-indexing/valid-for-searching distinction, and the length-walk
// used by CIDR query descent (spec.md §4.4, §4.6).
package rwhois

import (
	"fmt"
	"net/netip"
	"strings"
)

// Family distinguishes IPv4 from IPv6 prefixes.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

// Prefix is a canonical network value: an address family, the address
// bytes (host bits zeroed), and a prefix length.
type Prefix struct {
	Family Family
	Bytes  []byte
	Len    int
}

// ParsePrefixForIndexing parses s as "addr/len" and returns a canonical
// Prefix. A bare address with no length field is not eligible for
// indexing and returns ok=false, per spec.md §4.4 — only search allows
// the host-length fallback.
func ParsePrefixForIndexing(s string) (Prefix, bool) {
	return parsePrefix(s, false)
}

// ParsePrefixForSearch parses s the same way as ParsePrefixForIndexing but
// also accepts a bare address (host-length), per spec.md §4.4.
func ParsePrefixForSearch(s string) (Prefix, bool) {
	return parsePrefix(s, true)
}

func parsePrefix(s string, allowBareHost bool) (Prefix, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Prefix{}, false
	}

	if !strings.Contains(s, "/") {
		if !allowBareHost {
			return Prefix{}, false
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return Prefix{}, false
		}
		bits := 32
		if addr.Is6() {
			bits = 128
		}
		s = fmt.Sprintf("%s/%d", addr.String(), bits)
	}

	pfx, err := netip.ParsePrefix(s)
	if err != nil {
		return Prefix{}, false
	}

	maxLen := 32
	fam := FamilyV4
	if pfx.Addr().Is6() {
		maxLen = 128
		fam = FamilyV6
	}
	if pfx.Bits() < 0 || pfx.Bits() > maxLen {
		return Prefix{}, false
	}

	masked := pfx.Masked()
	addrBytes := masked.Addr().AsSlice()

	return Prefix{Family: fam, Bytes: addrBytes, Len: masked.Bits()}, true
}

// Canonical returns the canonical "addr/len" string form, host bits
// zeroed, per spec.md §4.4.
func (p Prefix) Canonical() string {
	addr, ok := netip.AddrFromSlice(p.Bytes)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%d", addr.String(), p.Len)
}

// Truncated returns p re-masked to the given length (<=  p's bit width),
// used by the query engine's length-descent walk (spec.md §4.6).
func (p Prefix) Truncated(length int) Prefix {
	addr, ok := netip.AddrFromSlice(p.Bytes)
	if !ok {
		return p
	}
	pfx, err := addr.Prefix(length)
	if err != nil {
		return p
	}
	masked := pfx.Masked()
	return Prefix{Family: p.Family, Bytes: masked.Addr().AsSlice(), Len: masked.Bits()}
}

// WalkLengths yields every prefix length from p.Len down to 0, re-masked
// at each step — the CIDR query descent of spec.md §4.6.
func (p Prefix) WalkLengths(yield func(Prefix) bool) {
	for l := p.Len; l >= 0; l-- {
		if !yield(p.Truncated(l)) {
			return
		}
	}
}
