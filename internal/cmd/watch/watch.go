// Package watch runs a headless observer against a list sync server.
//
// It keeps a reconciliation loop subscribed to the server's change stream
// and reprints the owner's unfinished and completed views after every
// notification, which makes it a convenient way to watch another client's
// edits land in real time.
package watch

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/sharelist/internal/client"
	"github.com/louisbranch/sharelist/internal/identity"
	"github.com/louisbranch/sharelist/internal/platform/config"
)

const defaultBaseURL = "http://localhost:8090"

// Config holds the watch command configuration.
type Config struct {
	BaseURL string
	Owner   string
}

type watchEnv struct {
	BaseURL string `env:"SHARELIST_BASE_URL"`
}

// ParseConfig loads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var env watchEnv
	if err := config.ParseEnv(&env); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL: strings.TrimSpace(env.BaseURL),
		Owner:   identity.DefaultOwner,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "list sync server base URL")
	fs.StringVar(&cfg.Owner, "owner", cfg.Owner, "identity token to watch")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run watches the server until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	viewer := &viewer{baseURL: strings.TrimRight(cfg.BaseURL, "/"), owner: cfg.Owner}

	reconciler, err := client.NewReconciler(client.Config{
		BaseURL: cfg.BaseURL,
		Reload:  viewer.reload,
	})
	if err != nil {
		return fmt.Errorf("init reconciler: %w", err)
	}

	if err := viewer.reload(ctx); err != nil {
		log.Printf("initial load failed, waiting for server: %v", err)
	}
	if err := reconciler.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

type viewer struct {
	baseURL string
	owner   string
}

type todoLine struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (v *viewer) reload(ctx context.Context) error {
	unfinished, err := v.fetch(ctx, "/api/todos/unfinished")
	if err != nil {
		return err
	}
	completed, err := v.fetch(ctx, "/api/todos/completed")
	if err != nil {
		return err
	}

	log.Printf("%d unfinished, %d completed", len(unfinished), len(completed))
	for _, todo := range unfinished {
		log.Printf("  [ ] %d %s", todo.ID, todo.Title)
	}
	for _, todo := range completed {
		log.Printf("  [x] %d %s", todo.ID, todo.Title)
	}
	return nil
}

func (v *viewer) fetch(ctx context.Context, path string) ([]todoLine, error) {
	endpoint := v.baseURL + path + "?owner=" + url.QueryEscape(v.owner)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	var todos []todoLine
	if err := json.NewDecoder(resp.Body).Decode(&todos); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return todos, nil
}
