// Package store persists history, favorites and the brand kit. Collections are
// written whole: every save replaces what was stored before.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dixieflatline76/ProductScene/pkg/record"
)

// Collection and key names shared by every backend.
const (
	CollectionHistory   = "history"
	CollectionFavorites = "favorites"
	BrandKitKey         = "brand_kit"
)

// SchemaVersion is written with every file and checked on load.
const SchemaVersion = "v1.0.0"

// ErrSchemaVersion is returned when stored data was written by an incompatible
// version.
var ErrSchemaVersion = errors.New("incompatible schema version")

// Store is the persistence collaborator.
type Store interface {
	// LoadHistory returns every generation, newest first.
	LoadHistory(ctx context.Context) ([]record.Generation, error)
	// SaveHistory replaces the stored history.
	SaveHistory(ctx context.Context, history []record.Generation) error
	// LoadFavorites returns every favorite, newest first.
	LoadFavorites(ctx context.Context) ([]record.Favorite, error)
	// SaveFavorites replaces the stored favorites.
	SaveFavorites(ctx context.Context, favorites []record.Favorite) error
	// LoadBrandKit returns nil, nil if no brand kit was ever saved.
	LoadBrandKit(ctx context.Context) (*record.BrandKit, error)
	// SaveBrandKit replaces the stored brand kit.
	SaveBrandKit(ctx context.Context, kit record.BrandKit) error
	Close() error
}

func sortGenerations(h []record.Generation) {
	sort.SliceStable(h, func(i, j int) bool { return h[i].CreatedAt.After(h[j].CreatedAt) })
}

func sortFavorites(f []record.Favorite) {
	sort.SliceStable(f, func(i, j int) bool { return f[i].CreatedAt.After(f[j].CreatedAt) })
}
