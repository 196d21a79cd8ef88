package server

import (
	"flag"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8090" {
		t.Fatalf("expected default addr localhost:8090, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != filepath.Join("data", "sharelist.db") {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigEnvAndFlagOverrides(t *testing.T) {
	t.Setenv("SHARELIST_HTTP_ADDR", "localhost:9100")
	t.Setenv("SHARELIST_DB_PATH", "/tmp/env.db")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "/tmp/flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:9100" {
		t.Fatalf("expected env addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Fatalf("expected flag db override, got %q", cfg.DBPath)
	}
}
