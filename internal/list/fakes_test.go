package list

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/sharelist/internal/storage"
)

// failingItemStore fails every persistence call, so gateway tests can
// assert that failed mutations publish nothing.
type failingItemStore struct {
	err error
}

func newFailingItemStore() *failingItemStore {
	return &failingItemStore{err: errors.New("storage unavailable")}
}

func (f *failingItemStore) ListItems(context.Context, string, storage.View, storage.Order) ([]storage.Item, error) {
	return nil, f.err
}

func (f *failingItemStore) SearchItems(context.Context, string, string) ([]storage.Item, error) {
	return nil, f.err
}

func (f *failingItemStore) GetItem(context.Context, int64) (storage.Item, error) {
	return storage.Item{}, f.err
}

func (f *failingItemStore) InsertItem(context.Context, storage.Item) (storage.Item, error) {
	return storage.Item{}, f.err
}

func (f *failingItemStore) UpdateItemTitle(context.Context, int64, string) error {
	return f.err
}

func (f *failingItemStore) SetItemCompletion(context.Context, int64, bool, *time.Time) error {
	return f.err
}

func (f *failingItemStore) DeleteItem(context.Context, int64) error {
	return f.err
}

func (f *failingItemStore) ClearCompletedItems(context.Context, string) error {
	return f.err
}

func (f *failingItemStore) UpdateItemRanks(context.Context, string, map[int64]int64) error {
	return f.err
}

func (f *failingItemStore) CompleteUnfinishedItems(context.Context, string, time.Time) error {
	return f.err
}

func (f *failingItemStore) DeleteUnfinishedItems(context.Context, string) error {
	return f.err
}
