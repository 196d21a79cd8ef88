package web

import (
	"time"

	"github.com/louisbranch/sharelist/internal/storage"
)

// todoView is the wire shape for one list item.
type todoView struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Completed   bool    `json:"completed"`
	Cleared     bool    `json:"cleared"`
	CreatedAt   string  `json:"createdAt"`
	CompletedAt *string `json:"completedAt"`
	Owner       string  `json:"owner"`
	OrderRank   int64   `json:"orderRank"`
}

// identityView is the wire shape for one identity record.
type identityView struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
}

// eventView is the wire shape for one SSE notification.
type eventView struct {
	Type string    `json:"type"`
	Todo *todoView `json:"todo,omitempty"`
}

func itemToView(item storage.Item) todoView {
	view := todoView{
		ID:        item.ID,
		Title:     item.Title,
		Completed: item.Completed,
		Cleared:   item.Cleared,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
		Owner:     item.Owner,
		OrderRank: item.OrderRank,
	}
	if item.CompletedAt != nil {
		at := item.CompletedAt.UTC().Format(time.RFC3339)
		view.CompletedAt = &at
	}
	return view
}

func itemsToViews(items []storage.Item) []todoView {
	views := make([]todoView, 0, len(items))
	for _, item := range items {
		views = append(views, itemToView(item))
	}
	return views
}

func identityToView(identity storage.Identity) identityView {
	return identityView{
		Token:       identity.Token,
		DisplayName: identity.DisplayLabel,
		CreatedAt:   identity.CreatedAt.UTC().Format(time.RFC3339),
	}
}
