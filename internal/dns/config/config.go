package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the UDP port the relay binds to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// ForwardOnly skips the address store on queries and always forwards.
	ForwardOnly bool `koanf:"forward_only"`

	// Upstream is the resolver queries are forwarded to, in ip:port format.
	Upstream string `koanf:"upstream" validate:"required,ip_port"`

	// BufferSize is the datagram buffer and the maximum answer size in bytes.
	BufferSize int `koanf:"buffer_size" validate:"required,gte=64,lte=65535"`

	// AnswerTTL is the TTL in seconds stamped on every answer record. The codec
	// reads 0 as "use its default", so 0 is rejected here.
	AnswerTTL uint32 `koanf:"answer_ttl" validate:"required,gte=1"`

	// PendingSize bounds the number of outstanding forwarded queries.
	PendingSize int `koanf:"pending_size" validate:"required,gte=1,lte=65536"`

	// StorePath is the bbolt file for learned addresses. Empty keeps them in memory.
	StorePath string `koanf:"store_path"`

	// SeedFile optionally pre-populates the store (hosts, YAML, JSON or TOML).
	SeedFile string `koanf:"seed_file"`

	// CacheSize is the front cache capacity. 0 disables it.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	BloomCapacity uint64  `koanf:"bloom_capacity" validate:"required,gte=1"`
	BloomFPRate   float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings
// for the relay.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:           "prod",
	LogLevel:      "info",
	Port:          53,
	ForwardOnly:   false,
	Upstream:      "1.1.1.1:53",
	BufferSize:    512,
	AnswerTTL:     300,
	PendingSize:   4096,
	StorePath:     "",
	SeedFile:      "",
	CacheSize:     1000,
	BloomCapacity: 10000,
	BloomFPRate:   0.01,
}

// UpstreamAddrPort returns the parsed upstream address. Load has already
// validated it, so the error only fires for hand-built configs.
func (c *AppConfig) UpstreamAddrPort() (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(c.Upstream)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid upstream %q: %w", c.Upstream, err)
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}

// ListenAddr returns the wildcard bind address for Port.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// validIPPort validates whether the provided field value is an IP address and
// a non-zero port, e.g. "1.1.1.1:53" or "[2606:4700::1111]:53".
func validIPPort(fl validator.FieldLevel) bool {
	ap, err := netip.ParseAddrPort(fl.Field().String())
	return err == nil && ap.Port() > 0
}

// envLoader is a function that loads environment variables with the prefix "DNS_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf instance
// using the structs provider and the DEFAULT_APP_CONFIG struct.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers a custom validation function "ip_port" with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
