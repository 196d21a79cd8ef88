// Package settings manages the persisted theme preference.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/sharelist/internal/errors"
	"github.com/louisbranch/sharelist/internal/storage"
)

// DefaultTheme is returned when no preference has been persisted yet.
const DefaultTheme = "dark"

var validThemes = []string{"dark", "light", "retro", "banana", "ice", "forest"}

// Service reads and writes the theme preference.
type Service struct {
	store storage.SettingsStore
}

// NewService creates a settings service over the given store.
func NewService(store storage.SettingsStore) *Service {
	return &Service{store: store}
}

// Theme returns the persisted theme, or DefaultTheme when unset.
func (s *Service) Theme(ctx context.Context) (string, error) {
	value, err := s.store.Theme(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DefaultTheme, nil
		}
		return "", apperrors.Wrap(apperrors.KindUnavailable, "load theme", err)
	}
	return value, nil
}

// SetTheme stores the theme preference. Unrecognized values are rejected
// before any write.
func (s *Service) SetTheme(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if !IsValidTheme(value) {
		return apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("unrecognized theme %q", value))
	}
	if err := s.store.SetTheme(ctx, value); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "persist theme", err)
	}
	return nil
}

// IsValidTheme reports whether value names a known theme.
func IsValidTheme(value string) bool {
	for _, theme := range validThemes {
		if value == theme {
			return true
		}
	}
	return false
}

// Themes returns the known theme names.
func Themes() []string {
	out := make([]string, len(validThemes))
	copy(out, validThemes)
	return out
}
