// Metaphone phonetic key generation.
//
// A direct port, into idiomatic Go, of the classical Phillips/Parker
// Metaphone algorithm as implemented in original_source/rwhoisd/mkdb/
// metaphon.c (itself public domain, originally published in C Gazette,
// June/July 1991). Character-class membership (vowel, "same", voiced
// variant, front vowel, silent-H context) is still driven by the original's
// bitmask table, just expressed as a Go array indexed by letter.
package rwhois

import "strings"

const maxMetaphone = 5

// Character-class bits, one nibble of original vsvfn[26], indexed A-Z.
const (
	bitVowel  = 1 << iota // AEIOU
	bitSame               // FJLMNR
	bitVarson             // CGPST
	bitFrontV             // EIY
	bitNoGHF              // BDH
)

var charClass = [26]byte{
	bitVowel, bitNoGHF, bitVarson, bitNoGHF, bitVowel | bitFrontV, bitSame, bitVarson, bitNoGHF,
	bitVowel | bitFrontV, bitSame, 0, bitSame, bitSame, bitSame, bitVowel, bitVarson, 0, bitSame,
	bitVarson, bitVarson, bitVowel, 0, 0, 0, bitFrontV, 0,
}

func classOf(b byte) byte {
	if b < 'A' || b > 'Z' {
		return 0
	}
	return charClass[b-'A']
}

func isVowel(b byte) bool  { return classOf(b)&bitVowel != 0 }
func isSame(b byte) bool   { return classOf(b)&bitSame != 0 }
func isVarson(b byte) bool { return classOf(b)&bitVarson != 0 }
func isFrontV(b byte) bool { return classOf(b)&bitFrontV != 0 }
func isNoGHF(b byte) bool  { return classOf(b)&bitNoGHF != 0 }

// at returns word[i], or 0 if i is out of range — standing in for the
// original's NUL-padded buffer so lookahead/lookbehind never indexes out
// of bounds.
func at(word []byte, i int) byte {
	if i < 0 || i >= len(word) {
		return 0
	}
	return word[i]
}

// metaphoneWord computes the Metaphone code for a single space-free word,
// already uppercased with non-letters stripped.
func metaphoneWord(word []byte) string {
	if len(word) == 0 {
		return ""
	}

	// Initial-digraph handling: PN/KN/GN/WR/AE drop the first letter; WH
	// collapses to W; leading X sounds like S.
	start := 0
	switch word[0] {
	case 'P', 'K', 'G':
		if at(word, 1) == 'N' {
			start = 1
		}
	case 'A':
		if at(word, 1) == 'E' {
			start = 1
		}
	case 'W':
		if at(word, 1) == 'R' {
			start = 1
		} else if at(word, 1) == 'H' {
			word = append([]byte{}, word...)
			word[1] = word[0]
			start = 1
		}
	case 'X':
		word = append([]byte{}, word...)
		word[0] = 'S'
	}

	var out []byte
	ksFlag := false
	n := start
	for ; n < len(word) && len(out) < maxMetaphone; n++ {
		c := word[n]
		prev := at(word, n-1)

		if ksFlag {
			ksFlag = false
			out = append(out, c)
			continue
		}

		// Drop duplicate letters, except doubled C.
		if n > start && prev == c && c != 'C' {
			continue
		}

		if isSame(c) || (n == start && isVowel(c)) {
			out = append(out, c)
			continue
		}

		switch c {
		case 'B':
			if n < len(word)-1 || prev != 'M' {
				out = append(out, 'B')
			}
		case 'C':
			if prev != 'S' || !isFrontV(at(word, n+1)) {
				switch {
				case at(word, n+1) == 'I' && at(word, n+2) == 'A':
					out = append(out, 'X')
				case isFrontV(at(word, n+1)):
					out = append(out, 'S')
				case at(word, n+1) == 'H':
					if (n == start && !isVowel(at(word, n+2))) || prev == 'S' {
						out = append(out, 'K')
					} else {
						out = append(out, 'X')
					}
				default:
					out = append(out, 'K')
				}
			}
		case 'D':
			if at(word, n+1) == 'G' && isFrontV(at(word, n+2)) {
				out = append(out, 'J')
			} else {
				out = append(out, 'T')
			}
		case 'G':
			if (at(word, n+1) != 'H' || isVowel(at(word, n+2))) &&
				(at(word, n+1) != 'N' || (n+1 < len(word) && (at(word, n+2) != 'E' || at(word, n+3) != 'D'))) &&
				(prev != 'D' || !isFrontV(at(word, n+1))) {
				if isFrontV(at(word, n+1)) && at(word, n+2) != 'G' {
					out = append(out, 'J')
				} else {
					out = append(out, 'K')
				}
			} else if at(word, n+1) == 'H' && !isNoGHF(at(word, n-3)) && at(word, n-4) != 'H' {
				out = append(out, 'F')
			}
		case 'H':
			if !isVarson(prev) && (!isVowel(prev) || isVowel(at(word, n+1))) {
				out = append(out, 'H')
			}
		case 'K':
			if prev != 'C' {
				out = append(out, 'K')
			}
		case 'P':
			if at(word, n+1) == 'H' {
				out = append(out, 'F')
			} else {
				out = append(out, 'P')
			}
		case 'Q':
			out = append(out, 'K')
		case 'S':
			if at(word, n+1) == 'H' || (at(word, n+1) == 'I' && (at(word, n+2) == 'O' || at(word, n+2) == 'A')) {
				out = append(out, 'X')
			} else {
				out = append(out, 'S')
			}
		case 'T':
			switch {
			case at(word, n+1) == 'I' && (at(word, n+2) == 'O' || at(word, n+2) == 'A'):
				out = append(out, 'X')
			case at(word, n+1) == 'H':
				out = append(out, 'O')
			case at(word, n+1) != 'C' || at(word, n+2) != 'H':
				out = append(out, 'T')
			}
		case 'V':
			out = append(out, 'F')
		case 'W', 'Y':
			if isVowel(at(word, n+1)) {
				out = append(out, c)
			}
		case 'X':
			if n == start {
				out = append(out, 'S')
			} else {
				out = append(out, 'K')
				ksFlag = true
			}
		case 'Z':
			out = append(out, 'S')
		}
	}

	if len(out) > maxMetaphone {
		out = out[:maxMetaphone]
	}
	return string(out)
}

// Metaphone computes the phonetic key of word, per spec.md §4.3. Multi-word
// input (whitespace-separated) produces space-separated per-word codes.
// The result is at most 5 characters per word, drawn from A-Z.
func Metaphone(word string) string {
	fields := strings.Fields(word)
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		var buf []byte
		for i := 0; i < len(f); i++ {
			c := f[i]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			if c >= 'A' && c <= 'Z' {
				buf = append(buf, c)
			}
		}
		codes = append(codes, metaphoneWord(buf))
	}
	return strings.Join(codes, " ")
}

// SoundexEligible reports whether value is eligible for SOUNDEX indexing:
// it must contain only letters and whitespace (spec.md §4.3/§4.5).
func SoundexEligible(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isSpace := c == ' ' || c == '\t'
		if !isLetter && !isSpace {
			return false
		}
	}
	return true
}
