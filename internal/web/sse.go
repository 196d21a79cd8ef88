package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/louisbranch/sharelist/internal/events"
)

// handleEvents holds the connection open and streams broker notifications
// as server-sent events. A failed write only tears down this observer; the
// broker keeps delivering to the rest.
func (h handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.broker.Subscribe()
	defer h.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-sub.Notifications():
			if !open {
				return
			}
			if err := writeEvent(w, n); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, n events.Notification) error {
	view := eventView{Type: string(n.Kind)}
	if n.Item != nil {
		todo := itemToView(*n.Item)
		view.Todo = &todo
	}
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("encode event: %v", err)
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
