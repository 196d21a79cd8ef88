// Package server wires the list sync runtime and HTTP lifecycle.
package server

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/sharelist/internal/events"
	"github.com/louisbranch/sharelist/internal/identity"
	"github.com/louisbranch/sharelist/internal/list"
	"github.com/louisbranch/sharelist/internal/platform/config"
	otelsetup "github.com/louisbranch/sharelist/internal/platform/otel"
	"github.com/louisbranch/sharelist/internal/settings"
	"github.com/louisbranch/sharelist/internal/storage/sqlite"
	"github.com/louisbranch/sharelist/internal/web"
)

const (
	defaultHTTPAddr = "localhost:8090"
	serviceName     = "sharelist-server"
)

// Config holds the server command configuration.
type Config struct {
	HTTPAddr string
	DBPath   string
}

type serverEnv struct {
	HTTPAddr string `env:"SHARELIST_HTTP_ADDR"`
	DBPath   string `env:"SHARELIST_DB_PATH"`
}

// ParseConfig loads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var env serverEnv
	if err := config.ParseEnv(&env); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr: strings.TrimSpace(env.HTTPAddr),
		DBPath:   strings.TrimSpace(env.DBPath),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "sharelist.db")
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the list sync server and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otelsetup.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	broker := events.NewBroker()
	handler := web.NewHandler(web.Deps{
		Identities: identity.NewResolver(store),
		Lists:      list.NewService(store, broker),
		Settings:   settings.NewService(store),
		Broker:     broker,
	})

	httpServer, err := web.NewServer(web.Config{HTTPAddr: cfg.HTTPAddr, Handler: handler})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}
	if err := httpServer.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve list sync: %w", err)
	}
	return nil
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
