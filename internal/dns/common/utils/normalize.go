package utils

import "strings"

// NormalizeName returns a DNS name in the relay's normalized form:
// - Trimmed of surrounding whitespace
// - Uppercased, so lookups are case-insensitive
// - No trailing dot
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ".")
	return UpperASCII(name)
}

// CanonicalName is the store key for a name already taken off the wire: one
// trailing dot dropped and ASCII letters uppercased. Unlike NormalizeName it
// never trims, so distinct wire names keep distinct keys.
func CanonicalName(name string) string {
	return UpperASCII(strings.TrimSuffix(name, "."))
}

// UpperASCII maps a-z to A-Z and leaves every other byte untouched. Label
// bytes are opaque octets, so the result always has the same length as s.
func UpperASCII(s string) string {
	i := 0
	for ; i < len(s); i++ {
		if c := s[i]; 'a' <= c && c <= 'z' {
			break
		}
	}
	if i == len(s) {
		return s
	}
	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
