package settings

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/sharelist/internal/errors"
	"github.com/louisbranch/sharelist/internal/storage"
)

type fakeSettingsStore struct {
	theme  string
	setErr error
}

func (f *fakeSettingsStore) Theme(context.Context) (string, error) {
	if f.theme == "" {
		return "", storage.ErrNotFound
	}
	return f.theme, nil
}

func (f *fakeSettingsStore) SetTheme(_ context.Context, theme string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.theme = theme
	return nil
}

func TestThemeDefaultsWhenUnset(t *testing.T) {
	service := NewService(&fakeSettingsStore{})

	theme, err := service.Theme(context.Background())
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if theme != DefaultTheme {
		t.Fatalf("theme = %q, want %q", theme, DefaultTheme)
	}
}

func TestSetThemeRoundTrip(t *testing.T) {
	service := NewService(&fakeSettingsStore{})
	ctx := context.Background()

	for _, theme := range Themes() {
		if err := service.SetTheme(ctx, theme); err != nil {
			t.Fatalf("set %q: %v", theme, err)
		}
		got, err := service.Theme(ctx)
		if err != nil {
			t.Fatalf("theme: %v", err)
		}
		if got != theme {
			t.Fatalf("theme = %q, want %q", got, theme)
		}
	}
}

func TestSetThemeRejectsUnknownValues(t *testing.T) {
	store := &fakeSettingsStore{theme: "dark"}
	service := NewService(store)

	for _, value := range []string{"", "neon", "DARK"} {
		err := service.SetTheme(context.Background(), value)
		if apperrors.KindOf(err) != apperrors.KindInvalidInput {
			t.Fatalf("SetTheme(%q) kind = %v, want invalid input", value, apperrors.KindOf(err))
		}
	}
	if store.theme != "dark" {
		t.Fatalf("theme mutated to %q by rejected writes", store.theme)
	}
}

func TestSetThemePropagatesStoreFailure(t *testing.T) {
	store := &fakeSettingsStore{setErr: errors.New("disk full")}
	service := NewService(store)

	err := service.SetTheme(context.Background(), "light")
	if apperrors.KindOf(err) != apperrors.KindUnavailable {
		t.Fatalf("kind = %v, want unavailable", apperrors.KindOf(err))
	}
}
