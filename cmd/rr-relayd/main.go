package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/config"
	"github.com/haukened/rr-relay/internal/dns/gateways/transport"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore/bloom"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore/bolt"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore/lru"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore/memory"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore/seed"
	"github.com/haukened/rr-relay/internal/dns/services/resolver"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-relayd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the relay
type Application struct {
	config    *config.AppConfig
	transport transport.PacketTransport
	resolver  *resolver.Resolver
	store     *addrstore.Repository
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info(map[string]any{
		"app":          appName,
		"version":      version,
		"env":          cfg.Env,
		"log_level":    cfg.LogLevel,
		"port":         cfg.Port,
		"upstream":     cfg.Upstream,
		"forward_only": cfg.ForwardOnly,
		"store_path":   cfg.StorePath,
	}, "Starting RR-Relay")

	app, err := buildApplication(cfg, cfg.ListenAddr())
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Relay failed")
	}

	log.Info(nil, "RR-Relay stopped gracefully")
}

// buildApplication constructs all components and wires them together.
// listenAddr is passed separately so tests can bind an ephemeral port.
func buildApplication(cfg *config.AppConfig, listenAddr string) (*Application, error) {
	// Create shared clock for consistent time across all components
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	upstream, err := cfg.UpstreamAddrPort()
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build address store: %w", err)
	}

	codec := wire.NewUDPCodec(wire.Options{
		Logger:    logger,
		AnswerTTL: cfg.AnswerTTL,
	})

	udp, err := transport.NewTransport(transport.TransportUDP, listenAddr, cfg.BufferSize, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to bind transport: %w", err)
	}

	resolverService, err := resolver.NewResolver(resolver.ResolverOptions{
		Codec:       codec,
		Store:       store,
		Transport:   udp,
		Upstream:    upstream,
		ForwardOnly: cfg.ForwardOnly,
		BufferSize:  cfg.BufferSize,
		PendingSize: cfg.PendingSize,
		Clock:       clk,
		Logger:      logger,
	})
	if err != nil {
		_ = udp.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to build resolver: %w", err)
	}

	return &Application{
		config:    cfg,
		transport: udp,
		resolver:  resolverService,
		store:     store,
	}, nil
}

// buildStore opens the backing store, layers the cache and bloom filter on
// top, and loads the optional seed file.
func buildStore(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*addrstore.Repository, error) {
	var backing addrstore.Store
	if cfg.StorePath != "" {
		st, err := bolt.New(cfg.StorePath, clk)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", cfg.StorePath, err)
		}
		backing = st
		log.Info(map[string]any{"path": cfg.StorePath}, "Persistent address store opened")
	} else {
		backing = memory.New(clk)
		log.Info(nil, "In-memory address store configured")
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		_ = backing.Close()
		return nil, fmt.Errorf("failed to create front cache: %w", err)
	}

	repo := addrstore.NewRepository(addrstore.Options{
		Store:         backing,
		Cache:         cache,
		Bloom:         bloom.NewFactory(),
		Logger:        logger,
		BloomCapacity: cfg.BloomCapacity,
		BloomFPRate:   cfg.BloomFPRate,
	})
	if _, err := repo.Warm(); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to warm address store: %w", err)
	}

	if cfg.SeedFile != "" {
		entries, err := seed.LoadFile(cfg.SeedFile, logger)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		added, err := seed.Apply(repo, entries)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		log.Info(map[string]any{
			"seed_file": cfg.SeedFile,
			"entries":   len(entries),
			"added":     added,
		}, "Seed file loaded")
	}
	return repo, nil
}

// Run serves datagrams until ctx is cancelled, then closes the transport to
// unblock the receive loop and releases the store.
func (app *Application) Run(ctx context.Context) error {
	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": string(transport.TransportUDP),
	}, "Relay started")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.resolver.Serve(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Info(nil, "Shutdown initiated")
	case err = <-serveErr:
		serveErr = nil
	}

	if cerr := app.transport.Close(); cerr != nil {
		log.Warn(map[string]any{"error": cerr.Error()}, "Error during transport shutdown")
	}

	if serveErr != nil {
		select {
		case err = <-serveErr:
		case <-time.After(defaultShutdownTimeout):
			log.Warn(map[string]any{"timeout": defaultShutdownTimeout.String()}, "Shutdown timeout exceeded")
			err = errors.New("shutdown timeout")
		}
	}

	log.Info(app.resolver.Stats().Fields(), "Resolver statistics")
	log.Info(app.store.Stats().Fields(), "Address store statistics")

	if cerr := app.store.Close(); cerr != nil {
		log.Warn(map[string]any{"error": cerr.Error()}, "Error closing address store")
	}
	return err
}
