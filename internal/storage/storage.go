// Package storage defines persistence contracts for list sync state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// View selects which completion slice of a partition to read.
type View int

const (
	// ViewAll returns every non-cleared item in the partition.
	ViewAll View = iota
	// ViewUnfinished returns non-cleared items that are not completed.
	ViewUnfinished
	// ViewCompleted returns non-cleared items that are completed.
	ViewCompleted
)

// Order selects how a partition read is sorted.
type Order int

const (
	// OrderChronological sorts by creation time descending, or by
	// completion time descending for the completed view.
	OrderChronological Order = iota
	// OrderCustom sorts by rank ascending with identifier as tiebreaker.
	OrderCustom
)

// Item stores one list entry.
type Item struct {
	ID          int64
	Title       string
	Completed   bool
	Cleared     bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	Owner       string
	OrderRank   int64
}

// Identity stores one minted identity token record.
type Identity struct {
	Token        string
	DisplayLabel string
	CreatedAt    time.Time
}

// ItemStore persists list items.
type ItemStore interface {
	ListItems(ctx context.Context, owner string, view View, order Order) ([]Item, error)
	SearchItems(ctx context.Context, owner string, query string) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	UpdateItemTitle(ctx context.Context, id int64, title string) error
	SetItemCompletion(ctx context.Context, id int64, completed bool, completedAt *time.Time) error
	DeleteItem(ctx context.Context, id int64) error
	ClearCompletedItems(ctx context.Context, owner string) error
	// UpdateItemRanks assigns ranks atomically. When any identifier does
	// not name an item owned by owner the whole update is rolled back and
	// ErrNotFound is returned.
	UpdateItemRanks(ctx context.Context, owner string, ranks map[int64]int64) error
	CompleteUnfinishedItems(ctx context.Context, owner string, completedAt time.Time) error
	DeleteUnfinishedItems(ctx context.Context, owner string) error
}

// IdentityStore persists identity records keyed by token.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, identity Identity) error
	GetIdentity(ctx context.Context, token string) (Identity, error)
}

// SettingsStore persists the single theme preference.
type SettingsStore interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

// Store combines every persistence contract the sync core consumes.
type Store interface {
	ItemStore
	IdentityStore
	SettingsStore
}
