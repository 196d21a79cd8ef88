// Package sqlite provides a SQLite-backed list sync storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/sharelist/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/sharelist/internal/storage"
	"github.com/louisbranch/sharelist/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists list sync state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const itemColumns = "id, title, completed, cleared, created_at, completed_at, owner, order_rank"

func scanItem(scanner interface{ Scan(...any) error }) (storage.Item, error) {
	var item storage.Item
	var completed, cleared int64
	var createdAt int64
	var completedAt sql.NullInt64
	if err := scanner.Scan(
		&item.ID,
		&item.Title,
		&completed,
		&cleared,
		&createdAt,
		&completedAt,
		&item.Owner,
		&item.OrderRank,
	); err != nil {
		return storage.Item{}, err
	}
	item.Completed = completed != 0
	item.Cleared = cleared != 0
	item.CreatedAt = fromMillis(createdAt)
	if completedAt.Valid {
		at := fromMillis(completedAt.Int64)
		item.CompletedAt = &at
	}
	return item, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]storage.Item, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	items := []storage.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListItems returns the owner's items for the given view and sort order.
func (s *Store) ListItems(ctx context.Context, owner string, view storage.View, order storage.Order) ([]storage.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	where := "owner = ? AND cleared = 0"
	orderBy := "created_at DESC, id DESC"
	switch view {
	case storage.ViewUnfinished:
		where += " AND completed = 0"
	case storage.ViewCompleted:
		where += " AND completed = 1"
		orderBy = "completed_at DESC, id DESC"
	}
	if order == storage.OrderCustom {
		orderBy = "order_rank ASC, id ASC"
	}

	items, err := s.queryItems(ctx,
		"SELECT "+itemColumns+" FROM items WHERE "+where+" ORDER BY "+orderBy,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// SearchItems returns the owner's non-cleared items whose title contains query.
func (s *Store) SearchItems(ctx context.Context, owner string, query string) ([]storage.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	items, err := s.queryItems(ctx,
		"SELECT "+itemColumns+" FROM items WHERE owner = ? AND cleared = 0 AND title LIKE ? ORDER BY created_at DESC, id DESC",
		owner,
		"%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

// GetItem returns one item by identifier.
func (s *Store) GetItem(ctx context.Context, id int64) (storage.Item, error) {
	if err := ctx.Err(); err != nil {
		return storage.Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Item{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?",
		id,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Item{}, storage.ErrNotFound
		}
		return storage.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// InsertItem inserts one item and returns it with its assigned identifier.
func (s *Store) InsertItem(ctx context.Context, item storage.Item) (storage.Item, error) {
	if err := ctx.Err(); err != nil {
		return storage.Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Item{}, fmt.Errorf("storage is not configured")
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return storage.Item{}, fmt.Errorf("title is required")
	}
	owner := strings.TrimSpace(item.Owner)
	if owner == "" {
		return storage.Item{}, fmt.Errorf("owner is required")
	}
	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO items (title, created_at, owner, order_rank) VALUES (?, ?, ?, ?)",
		title,
		toMillis(createdAt),
		owner,
		item.OrderRank,
	)
	if err != nil {
		return storage.Item{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Item{}, fmt.Errorf("insert item id: %w", err)
	}
	return s.GetItem(ctx, id)
}

// UpdateItemTitle replaces one item's title.
func (s *Store) UpdateItemTitle(ctx context.Context, id int64, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, "UPDATE items SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return fmt.Errorf("update item title: %w", err)
	}
	return requireRowAffected(result, storage.ErrNotFound)
}

// SetItemCompletion stores the completion flag and its timestamp together.
func (s *Store) SetItemCompletion(ctx context.Context, id int64, completed bool, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	var at sql.NullInt64
	if completedAt != nil {
		at = sql.NullInt64{Int64: toMillis(*completedAt), Valid: true}
	}
	completedValue := 0
	if completed {
		completedValue = 1
	}

	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE items SET completed = ?, completed_at = ? WHERE id = ?",
		completedValue,
		at,
		id,
	)
	if err != nil {
		return fmt.Errorf("set item completion: %w", err)
	}
	return requireRowAffected(result, storage.ErrNotFound)
}

// DeleteItem permanently removes one item.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRowAffected(result, storage.ErrNotFound)
}

// ClearCompletedItems marks the owner's completed items as cleared.
func (s *Store) ClearCompletedItems(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return fmt.Errorf("owner is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE items SET cleared = 1 WHERE owner = ? AND completed = 1 AND cleared = 0",
		owner,
	); err != nil {
		return fmt.Errorf("clear completed items: %w", err)
	}
	return nil
}

// UpdateItemRanks assigns ranks atomically within one transaction.
func (s *Store) UpdateItemRanks(ctx context.Context, owner string, ranks map[int64]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return fmt.Errorf("owner is required")
	}
	if len(ranks) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rank transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for id, rank := range ranks {
		result, err := tx.ExecContext(ctx,
			"UPDATE items SET order_rank = ? WHERE id = ? AND owner = ?",
			rank,
			id,
			owner,
		)
		if err != nil {
			return fmt.Errorf("update rank for item %d: %w", id, err)
		}
		if err := requireRowAffected(result, storage.ErrNotFound); err != nil {
			return fmt.Errorf("item %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rank transaction: %w", err)
	}
	return nil
}

// CompleteUnfinishedItems marks every unfinished item for the owner completed.
func (s *Store) CompleteUnfinishedItems(ctx context.Context, owner string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return fmt.Errorf("owner is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE items SET completed = 1, completed_at = ? WHERE owner = ? AND completed = 0 AND cleared = 0",
		toMillis(completedAt.UTC()),
		owner,
	); err != nil {
		return fmt.Errorf("complete unfinished items: %w", err)
	}
	return nil
}

// DeleteUnfinishedItems permanently removes the owner's unfinished items.
func (s *Store) DeleteUnfinishedItems(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return fmt.Errorf("owner is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM items WHERE owner = ? AND completed = 0 AND cleared = 0",
		owner,
	); err != nil {
		return fmt.Errorf("delete unfinished items: %w", err)
	}
	return nil
}

// InsertIdentity inserts one identity record.
func (s *Store) InsertIdentity(ctx context.Context, identity storage.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	token := strings.TrimSpace(identity.Token)
	if token == "" {
		return fmt.Errorf("token is required")
	}
	label := strings.TrimSpace(identity.DisplayLabel)
	if label == "" {
		return fmt.Errorf("display label is required")
	}
	createdAt := identity.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO identities (token, display_label, created_at) VALUES (?, ?, ?)",
		token,
		label,
		toMillis(createdAt),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetIdentity returns one identity by token.
func (s *Store) GetIdentity(ctx context.Context, token string) (storage.Identity, error) {
	if err := ctx.Err(); err != nil {
		return storage.Identity{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Identity{}, fmt.Errorf("storage is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return storage.Identity{}, storage.ErrNotFound
	}

	var identity storage.Identity
	var createdAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT token, display_label, created_at FROM identities WHERE token = ?",
		token,
	)
	if err := row.Scan(&identity.Token, &identity.DisplayLabel, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Identity{}, storage.ErrNotFound
		}
		return storage.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	identity.CreatedAt = fromMillis(createdAt)
	return identity, nil
}

// Theme returns the persisted theme preference.
func (s *Store) Theme(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}

	var value string
	row := s.sqlDB.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = 'theme'")
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get theme: %w", err)
	}
	return value, nil
}

// SetTheme stores the theme preference.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return fmt.Errorf("theme is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES ('theme', ?)",
		theme,
	); err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	return nil
}

func requireRowAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("count rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
