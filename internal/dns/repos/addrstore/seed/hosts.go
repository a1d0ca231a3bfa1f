package seed

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// ParseHostsFile parses /etc/hosts-style input into host entries.
//
// Rules:
//   - The first field is the address; only IPv4 addresses are kept
//   - One or more hostnames follow the address
//   - Comments (whole-line or inline after '#') and blank lines are skipped
//   - Invalid tokens (wildcards, names starting with '.') are skipped
//   - Duplicate name/address pairs are dropped, preserving first-seen order
func ParseHostsFile(r io.Reader, source string, logger logpkg.Logger) ([]domain.HostEntry, error) {
	if logger == nil {
		logger = logpkg.NewNoopLogger()
	}
	scanner := bufio.NewScanner(r)
	seen := make(map[domain.HostEntry]struct{})
	out := make([]domain.HostEntry, 0, 64)
	logger.Debug(map[string]any{"source": source}, "parse_hosts_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 {
			line = stripLineBOM(line)
		}
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		fields := strings.Fields(stripInlineComment(line))
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostnames")
			continue
		}
		addr, ok := parseIPv4(fields[0])
		if !ok {
			logger.Debug(map[string]any{"line": lineNum, "raw": fields[0]}, "hosts_skip_non_ipv4")
			continue
		}
		for _, raw := range fields[1:] {
			name, ok := canonicalHost(raw)
			if !ok {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
				continue
			}
			entry := domain.HostEntry{Name: name, Addr: addr}
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_hosts_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_hosts_done")
	return out, nil
}
