// Package list implements the mutation gateway for shared list state.
//
// Every successful mutation persists through the item store, then publishes
// exactly one notification on the broker, then returns the resulting state
// to the caller. A failed mutation publishes nothing.
package list

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/sharelist/internal/errors"
	"github.com/louisbranch/sharelist/internal/events"
	"github.com/louisbranch/sharelist/internal/identity"
	"github.com/louisbranch/sharelist/internal/storage"
)

// Service wraps list mutations with persistence and change broadcasting.
type Service struct {
	store  storage.ItemStore
	broker *events.Broker
	clock  func() time.Time
}

// NewService creates a list service over the given store and broker.
func NewService(store storage.ItemStore, broker *events.Broker) *Service {
	return &Service{store: store, broker: broker, clock: time.Now}
}

// normalizeOwner maps an absent owner to the implicit default partition.
func normalizeOwner(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return identity.DefaultOwner
	}
	return owner
}

// List returns the owner's items for the given view and sort order.
func (s *Service) List(ctx context.Context, owner string, view storage.View, order storage.Order) ([]storage.Item, error) {
	items, err := s.store.ListItems(ctx, normalizeOwner(owner), view, order)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list items", err)
	}
	return items, nil
}

// Search returns the owner's items whose title contains query.
func (s *Service) Search(ctx context.Context, owner string, query string) ([]storage.Item, error) {
	items, err := s.store.SearchItems(ctx, normalizeOwner(owner), query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "search items", err)
	}
	return items, nil
}

// Get returns one item by identifier.
func (s *Service) Get(ctx context.Context, id int64) (storage.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Item{}, apperrors.E(apperrors.KindNotFound, "unknown item")
		}
		return storage.Item{}, apperrors.Wrap(apperrors.KindUnavailable, "load item", err)
	}
	return item, nil
}

// Add creates one unfinished item owned by owner.
func (s *Service) Add(ctx context.Context, owner string, title string) (storage.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Item{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}

	created, err := s.store.InsertItem(ctx, storage.Item{
		Title:     title,
		Owner:     normalizeOwner(owner),
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return storage.Item{}, apperrors.Wrap(apperrors.KindUnavailable, "persist item", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemAdded, Item: &created})
	return created, nil
}

// UpdateTitle replaces one item's title. Concurrent edits are last write
// wins; there is no version check.
func (s *Service) UpdateTitle(ctx context.Context, id int64, title string) (storage.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Item{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}

	if err := s.store.UpdateItemTitle(ctx, id, title); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Item{}, apperrors.E(apperrors.KindNotFound, "unknown item")
		}
		return storage.Item{}, apperrors.Wrap(apperrors.KindUnavailable, "persist item title", err)
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return storage.Item{}, err
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemUpdated, Item: &updated})
	return updated, nil
}

// Toggle flips one item's completion state. Completing stamps the current
// time; un-completing clears the timestamp. There is no explicit target
// state, only the flip.
func (s *Service) Toggle(ctx context.Context, id int64) (storage.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return storage.Item{}, err
	}

	if item.Completed {
		err = s.store.SetItemCompletion(ctx, id, false, nil)
	} else {
		now := s.clock().UTC()
		err = s.store.SetItemCompletion(ctx, id, true, &now)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Item{}, apperrors.E(apperrors.KindNotFound, "unknown item")
		}
		return storage.Item{}, apperrors.Wrap(apperrors.KindUnavailable, "persist item completion", err)
	}
	toggled, err := s.Get(ctx, id)
	if err != nil {
		return storage.Item{}, err
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemToggled, Item: &toggled})
	return toggled, nil
}

// Delete permanently removes one item.
func (s *Service) Delete(ctx context.Context, id int64) (storage.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return storage.Item{}, err
	}

	if err := s.store.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Item{}, apperrors.E(apperrors.KindNotFound, "unknown item")
		}
		return storage.Item{}, apperrors.Wrap(apperrors.KindUnavailable, "delete item", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemDeleted, Item: &item})
	return item, nil
}

// ClearCompleted hides the owner's completed items from every view while
// retaining them in storage.
func (s *Service) ClearCompleted(ctx context.Context, owner string) error {
	if err := s.store.ClearCompletedItems(ctx, normalizeOwner(owner)); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "clear completed items", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemsBulkDeleted})
	return nil
}

// Reorder assigns rank i to the item at position i of ids, atomically for
// the whole sequence. An identifier outside the owner's partition fails
// validation and leaves every existing rank unchanged. Items absent from
// ids keep their previous rank. Concurrent reorders are serialized by the
// storage transaction; the last one wins entirely.
func (s *Service) Reorder(ctx context.Context, owner string, ids []int64) error {
	if len(ids) == 0 {
		return apperrors.E(apperrors.KindInvalidInput, "reorder sequence is required")
	}
	ranks := make(map[int64]int64, len(ids))
	for i, id := range ids {
		if _, dup := ranks[id]; dup {
			return apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("reorder sequence repeats item %d", id))
		}
		ranks[id] = int64(i)
	}

	if err := s.store.UpdateItemRanks(ctx, normalizeOwner(owner), ranks); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindInvalidInput, "reorder sequence references an unknown item")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "persist item ranks", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemsReordered})
	return nil
}

// CompleteAll marks every unfinished item for the owner completed with the
// current time.
func (s *Service) CompleteAll(ctx context.Context, owner string) error {
	if err := s.store.CompleteUnfinishedItems(ctx, normalizeOwner(owner), s.clock().UTC()); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "complete unfinished items", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemsBulkCompleted})
	return nil
}

// DeleteUnfinished permanently removes the owner's unfinished items.
func (s *Service) DeleteUnfinished(ctx context.Context, owner string) error {
	if err := s.store.DeleteUnfinishedItems(ctx, normalizeOwner(owner)); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "delete unfinished items", err)
	}

	s.broker.Publish(events.Notification{Kind: events.KindItemsBulkDeleted})
	return nil
}
