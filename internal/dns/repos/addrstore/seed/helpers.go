package seed

import (
	"net/netip"
	"strings"
	"unicode"

	"github.com/haukened/rr-relay/internal/dns/common/utils"
)

// stripLineBOM removes a UTF-8 byte order mark from the first line of a file.
func stripLineBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// classifyLine reports whether the trimmed line is blank or a full-line comment.
func classifyLine(line string) (isEmpty, isComment bool) {
	t := strings.TrimSpace(line)
	if t == "" {
		return true, false
	}
	return false, strings.HasPrefix(t, "#")
}

// stripInlineComment drops everything from the first '#'.
func stripInlineComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// parseIPv4 accepts dotted-quad IPv4 and IPv4-mapped IPv6 addresses.
func parseIPv4(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	return addr, addr.Is4()
}

// canonicalHost normalizes a host token and reports whether it is usable.
// Wildcards and names with empty or oversized labels are rejected.
func canonicalHost(raw string) (string, bool) {
	if raw == "" || strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
		return "", false
	}
	name := utils.NormalizeName(raw)
	if name == "" || len(name) > 253 {
		return "", false
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 || len(label) > 63 {
			return "", false
		}
	}
	if r := rune(name[0]); !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
		return "", false
	}
	return name, true
}
