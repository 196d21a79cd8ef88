package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/sharelist/internal/client"
	"github.com/louisbranch/sharelist/internal/events"
)

func TestEventStreamDeliversMutations(t *testing.T) {
	handler, _ := newTestHandler(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/events")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subscribe: status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	first := readEvent(t, scanner)
	if first.Type != string(events.KindConnected) {
		t.Fatalf("first event = %q, want %q", first.Type, events.KindConnected)
	}

	// Publish is non-blocking, so the mutation can run before the stream
	// is drained.
	addTodo(t, handler, "", "streamed")

	event := readEvent(t, scanner)
	if event.Type != string(events.KindItemAdded) {
		t.Fatalf("event = %q, want %q", event.Type, events.KindItemAdded)
	}
	if event.Todo == nil || event.Todo.Title != "streamed" {
		t.Fatalf("event todo = %+v, want the created item", event.Todo)
	}
}

func readEvent(t *testing.T, scanner *bufio.Scanner) eventView {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event eventView
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		return event
	}
	t.Fatalf("stream ended early: %v", scanner.Err())
	return eventView{}
}

// observedTitles records what a reconciliation loop sees on each reload.
type observedTitles struct {
	mu     sync.Mutex
	titles []string
}

func (o *observedTitles) set(titles []string) {
	o.mu.Lock()
	o.titles = titles
	o.mu.Unlock()
}

func (o *observedTitles) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.titles...)
}

func newObservingClient(t *testing.T, baseURL string) (*client.Reconciler, *observedTitles) {
	t.Helper()
	observed := &observedTitles{}
	reconciler, err := client.NewReconciler(client.Config{
		BaseURL: baseURL,
		Reload: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/todos", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			var todos []struct {
				Title string `json:"title"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&todos); err != nil {
				return err
			}
			titles := make([]string, 0, len(todos))
			for _, todo := range todos {
				titles = append(titles, todo.Title)
			}
			observed.set(titles)
			return nil
		},
		ReconnectDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	return reconciler, observed
}

// TestSecondClientSeesFirstClientsChange runs the whole loop: one client
// mutates over HTTP, the other's reconciliation loop reloads off the event
// stream and observes the new state.
func TestSecondClientSeesFirstClientsChange(t *testing.T) {
	handler, broker := newTestHandler(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	reconciler, observed := newObservingClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = reconciler.Run(ctx)
	}()
	waitForObserverCount(t, broker, 1)

	// Client A mutates through the plain HTTP API.
	addTodo(t, handler, "", "shared item")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		titles := observed.snapshot()
		if len(titles) == 1 && titles[0] == "shared item" {
			cancel()
			<-done
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("observer never saw the change, last snapshot %v", observed.snapshot())
}

// TestOwnReorderIsNotReloaded checks the suppression window: a client that
// just issued a reorder ignores the echoed broadcast, while a second client
// still reloads.
func TestOwnReorderIsNotReloaded(t *testing.T) {
	handler, broker := newTestHandler(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	a := addTodo(t, handler, "", "first")
	b := addTodo(t, handler, "", "second")

	mover, moverSaw := newObservingClient(t, server.URL)
	watcher, watcherSaw := newObservingClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mover.Run(ctx) }()
	go func() { _ = watcher.Run(ctx) }()
	waitForObserverCount(t, broker, 2)

	mover.SuppressReorder()
	rec := doJSON(t, handler, http.MethodPut, "/api/todos/reorder", map[string]any{
		"ids": []int64{b.ID, a.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: status = %d, body %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(watcherSaw.snapshot()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := watcherSaw.snapshot(); len(got) != 2 {
		t.Fatalf("watcher snapshot = %v, want both items after reorder broadcast", got)
	}
	if got := moverSaw.snapshot(); len(got) != 0 {
		t.Fatalf("mover reloaded %v, want no reload for its own reorder", got)
	}
}

func waitForObserverCount(t *testing.T, broker *events.Broker, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if broker.ObserverCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("observer count = %d, want %d", broker.ObserverCount(), want)
}
