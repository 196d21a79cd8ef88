// Package identity mints and resolves opaque per-user identity tokens.
//
// A token is a URL slug derived from a human-chosen label, a separator,
// and a 32-character random alphanumeric suffix. Tokens partition list
// items by owner; they are unguessable but carry no authentication.
package identity

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/sharelist/internal/errors"
	"github.com/louisbranch/sharelist/internal/storage"
)

const (
	// Separator joins the label slug and the random suffix.
	Separator = "-"

	suffixLength   = 32
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// MinTokenLength is the shortest token the resolver can mint: a
	// one-character label slug, the separator, and the random suffix.
	MinTokenLength = 1 + len(Separator) + suffixLength

	// DefaultOwner is the implicit partition for items with no resolvable
	// owner token.
	DefaultOwner = "guest"
)

// Resolver mints and looks up identity tokens.
type Resolver struct {
	store storage.IdentityStore
	clock func() time.Time
}

// NewResolver creates a resolver backed by the given identity store.
func NewResolver(store storage.IdentityStore) *Resolver {
	return &Resolver{store: store, clock: time.Now}
}

// Create mints a new identity token for the given display label. The label
// must contain at least one letter or digit so the slug part is non-empty.
func (r *Resolver) Create(ctx context.Context, label string) (storage.Identity, error) {
	if r == nil || r.store == nil {
		return storage.Identity{}, apperrors.E(apperrors.KindUnavailable, "identity store is not configured")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return storage.Identity{}, apperrors.E(apperrors.KindInvalidInput, "display label is required")
	}
	slug := Slugify(label)
	if slug == "" {
		return storage.Identity{}, apperrors.E(apperrors.KindInvalidInput, "display label must contain letters or digits")
	}

	suffix, err := randomSuffix()
	if err != nil {
		return storage.Identity{}, fmt.Errorf("generate token suffix: %w", err)
	}

	identity := storage.Identity{
		Token:        slug + Separator + suffix,
		DisplayLabel: label,
		CreatedAt:    r.clock().UTC(),
	}
	if err := r.store.InsertIdentity(ctx, identity); err != nil {
		return storage.Identity{}, apperrors.Wrap(apperrors.KindUnavailable, "persist identity", err)
	}
	return identity, nil
}

// Resolve looks up a previously minted token. It is a pure read: unknown
// and syntactically invalid tokens both resolve to a not-found error.
func (r *Resolver) Resolve(ctx context.Context, token string) (storage.Identity, error) {
	if r == nil || r.store == nil {
		return storage.Identity{}, apperrors.E(apperrors.KindUnavailable, "identity store is not configured")
	}
	token = strings.TrimSpace(token)
	if !LooksLikeToken(token) {
		return storage.Identity{}, apperrors.E(apperrors.KindNotFound, "unknown identity token")
	}
	identity, err := r.store.GetIdentity(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Identity{}, apperrors.E(apperrors.KindNotFound, "unknown identity token")
		}
		return storage.Identity{}, apperrors.Wrap(apperrors.KindUnavailable, "load identity", err)
	}
	return identity, nil
}

// LooksLikeToken reports whether a path segment plausibly names a minted
// identity token. Every token Create can mint satisfies it; ordinary short
// route segments do not. The boundary is MinTokenLength (34): labels are
// never slugged below one character.
func LooksLikeToken(segment string) bool {
	return len(segment) >= MinTokenLength && strings.Contains(segment, Separator)
}

// Slugify lowers the label and collapses every non-alphanumeric run into a
// single separator, with leading and trailing separators stripped.
func Slugify(label string) string {
	var b strings.Builder
	pendingSeparator := false
	for _, r := range strings.ToLower(label) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSeparator = b.Len() > 0
			continue
		}
		if pendingSeparator {
			b.WriteString(Separator)
			pendingSeparator = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func randomSuffix() (string, error) {
	raw := make([]byte, suffixLength)
	if _, err := crand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, suffixLength)
	for i, b := range raw {
		out[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(out), nil
}
