// Per-attribute index value transforms, grounded on mkdb/index.c's
// exact_index/cidr_index/soundex_index.
package rwhois

import (
	"strings"
	"unicode"
)

// exactIndexValue upper-cases, strips control characters, and trims the
// value for the EXACT index — the original's exact_index.
func exactIndexValue(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return strings.TrimSpace(b.String())
}

// cidrIndexValue canonicalizes value for the CIDR index. allowBareHost
// mirrors the original's two call sites: the explicit INDEX_CIDR case
// requires an indexable network (cidr_index -> is_network_valid_for_index),
// while the INDEX_ALL fan-out accepts a bare host address too
// (is_network_valid_for_searching).
func cidrIndexValue(value string, allowBareHost bool) (string, bool) {
	var p Prefix
	var ok bool
	if allowBareHost {
		p, ok = ParsePrefixForSearch(value)
	} else {
		p, ok = ParsePrefixForIndexing(value)
	}
	if !ok {
		return "", false
	}
	return p.Canonical(), true
}

// stripNonSoundex reduces value to letters and spaces, mirroring the
// original's strip_non_soundex (any other printable byte becomes a space,
// control bytes are dropped outright).
func stripNonSoundex(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case !unicode.IsControl(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// soundexIndexValue produces the SOUNDEX index value: each whitespace-
// separated token run through Metaphone, joined back with single spaces.
// Metaphone already does this token splitting, so this is a thin wrapper
// over stripNonSoundex.
func soundexIndexValue(value string) string {
	return strings.TrimSpace(Metaphone(stripNonSoundex(value)))
}

// indexValuesForAttr returns the (kind, value) pairs to emit for one
// attribute/value pair of a record, per the fan-out rules of
// mkdb/index.c's index_record.
func indexValuesForAttr(attr *AttributeDef, value string) []struct {
	Kind  FileKind
	Value string
} {
	var out []struct {
		Kind  FileKind
		Value string
	}
	add := func(kind FileKind, v string, ok bool) {
		if ok && v != "" {
			out = append(out, struct {
				Kind  FileKind
				Value string
			}{kind, v})
		}
	}

	switch attr.Index {
	case IndexExact:
		add(FileExactIndex, exactIndexValue(value), true)
	case IndexCIDR:
		v, ok := cidrIndexValue(value, false)
		add(FileCIDRIndex, v, ok)
	case IndexSoundex:
		add(FileSoundexIndex, soundexIndexValue(value), true)
	case IndexAll:
		add(FileExactIndex, exactIndexValue(value), true)
		if v, ok := cidrIndexValue(value, true); ok {
			add(FileCIDRIndex, v, true)
		}
		add(FileSoundexIndex, soundexIndexValue(value), true)
	}
	return out
}
