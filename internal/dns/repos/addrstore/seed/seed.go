// Package seed loads static name → address entries used to pre-populate the
// address store. Hosts files, YAML, JSON and TOML are supported.
//
// Structured files carry a single "hosts" list:
//
//	hosts:
//	  - name: example.com
//	    addresses: [93.184.216.34]
//	  - name: printer.lan
//	    address: 192.168.1.20
package seed

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	logpkg "github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// Inserter receives seeded entries.
type Inserter interface {
	Insert(name string, addr netip.Addr) (bool, error)
}

// LoadFile reads host entries from path. The format is chosen by extension;
// anything that is not YAML, JSON or TOML is parsed as a hosts file.
func LoadFile(path string, logger logpkg.Logger) ([]domain.HostEntry, error) {
	if logger == nil {
		logger = logpkg.NewNoopLogger()
	}
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
		}
		defer f.Close()
		return ParseHostsFile(f, path, logger)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}
	return parseStructured(k.Get("hosts"), path)
}

// Apply inserts entries into dst and returns how many were new.
func Apply(dst Inserter, entries []domain.HostEntry) (int, error) {
	added := 0
	for _, e := range entries {
		ok, err := dst.Insert(e.Name, e.Addr)
		if err != nil {
			return added, fmt.Errorf("failed to seed %s: %w", e.Name, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// parseStructured converts the raw "hosts" list into entries. Any malformed
// element fails the whole file.
func parseStructured(raw any, source string) ([]domain.HostEntry, error) {
	if raw == nil {
		return nil, fmt.Errorf("seed file %s missing 'hosts'", source)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("seed file %s: 'hosts' must be a list", source)
	}
	seen := make(map[domain.HostEntry]struct{})
	var out []domain.HostEntry
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("seed file %s: hosts[%d] must be a table", source, i)
		}
		rawName, _ := m["name"].(string)
		name, ok := canonicalHost(strings.TrimSpace(rawName))
		if !ok {
			return nil, fmt.Errorf("seed file %s: hosts[%d] has invalid name %q", source, i, rawName)
		}
		values := append(toStringValues(m["address"]), toStringValues(m["addresses"])...)
		if len(values) == 0 {
			return nil, fmt.Errorf("seed file %s: hosts[%d] (%s) has no addresses", source, i, name)
		}
		for _, v := range values {
			addr, ok := parseIPv4(v)
			if !ok {
				return nil, fmt.Errorf("seed file %s: hosts[%d] (%s) has invalid IPv4 address %q", source, i, name, v)
			}
			entry := domain.HostEntry{Name: name, Addr: addr}
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}
	return out, nil
}

// toStringValues converts a raw parsed value (string or []any of strings) into
// a slice of non-empty strings.
func toStringValues(val any) []string {
	switch v := val.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}
