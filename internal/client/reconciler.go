// Package client maintains one observer's reconciliation loop against the
// list sync server.
//
// The loop holds a persistent SSE subscription and reconciles every change
// notification with a full reload rather than applying payloads directly,
// so a missed or duplicated notification only costs one extra reload. A
// client's own reorder broadcast is suppressed for a short window to keep
// an in-progress local drag from being visibly undone.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/sharelist/internal/events"
)

const (
	// defaultReconnectDelay is the fixed wait between subscribe attempts.
	// The loop retries forever; only context cancellation is terminal.
	defaultReconnectDelay = 3 * time.Second
	// defaultSuppressWindow is how long a client ignores reorder
	// notifications after issuing its own reorder.
	defaultSuppressWindow = time.Second
	// defaultSettleDelay yields before reloading on a foreign reorder so
	// the persistence step settles first.
	defaultSettleDelay = 50 * time.Millisecond

	eventDataPrefix = "data: "
)

// Config defines the inputs for a reconciler.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8090.
	BaseURL string
	// Reload refreshes the client's unfinished and completed views.
	Reload func(ctx context.Context) error
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// ReconnectDelay defaults to 3s, SuppressWindow to 1s.
	ReconnectDelay time.Duration
	SuppressWindow time.Duration
}

// Reconciler runs the subscribe/reload loop for one client.
type Reconciler struct {
	baseURL        string
	reload         func(ctx context.Context) error
	httpClient     *http.Client
	reconnectDelay time.Duration
	settleDelay    time.Duration
	suppress       *reorderSuppressor
}

// NewReconciler builds a reconciler from config, applying defaults.
func NewReconciler(config Config) (*Reconciler, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	if config.Reload == nil {
		return nil, errors.New("reload callback is required")
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	reconnectDelay := config.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	suppressWindow := config.SuppressWindow
	if suppressWindow <= 0 {
		suppressWindow = defaultSuppressWindow
	}

	return &Reconciler{
		baseURL:        baseURL,
		reload:         config.Reload,
		httpClient:     httpClient,
		reconnectDelay: reconnectDelay,
		settleDelay:    defaultSettleDelay,
		suppress:       newReorderSuppressor(suppressWindow, time.Now),
	}, nil
}

// SuppressReorder arms the suppress window. Call it immediately after this
// client issues a reorder, before its broadcast can arrive back.
func (r *Reconciler) SuppressReorder() {
	r.suppress.Arm()
}

// Run subscribes and consumes notifications until ctx is cancelled,
// resubscribing after the reconnect delay whenever the channel fails.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		if err := r.consume(ctx); err != nil && ctx.Err() == nil {
			log.Printf("event subscription lost: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !wait(ctx, r.reconnectDelay) {
			return ctx.Err()
		}
	}
}

func (r *Reconciler) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/events", nil)
	if err != nil {
		return fmt.Errorf("build subscribe request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe: unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, eventDataPrefix) {
			continue
		}
		var payload struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line[len(eventDataPrefix):]), &payload); err != nil {
			log.Printf("decode event: %v", err)
			continue
		}
		if err := r.handle(ctx, events.Kind(payload.Type)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return errors.New("event stream closed")
}

func (r *Reconciler) handle(ctx context.Context, kind events.Kind) error {
	switch kind {
	case events.KindConnected:
		return nil
	case events.KindItemsReordered:
		if r.suppress.Armed() {
			// This client already applied the order optimistically.
			return nil
		}
		if !wait(ctx, r.settleDelay) {
			return ctx.Err()
		}
	}
	if err := r.reload(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("reload after %s: %v", kind, err)
	}
	return nil
}

func wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
