package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func generation(id string, age time.Duration) record.Generation {
	return record.Generation{
		ID:      id,
		Source:  record.Image{Data: []byte("src-" + id), MIMEType: "image/png"},
		Results: []record.Image{{Data: []byte("r1-" + id), MIMEType: "image/png"}, {Data: []byte("r2-" + id), MIMEType: "image/png"}},
		Prompt:  "prompt " + id,
		// Older records have a larger age.
		CreatedAt: base.Add(-age),
	}
}

func favorite(id string, age time.Duration) record.Favorite {
	return record.Favorite{
		ID:        id,
		Image:     record.Image{Data: []byte("fav-" + id), MIMEType: "image/png"},
		Prompt:    "prompt " + id,
		CreatedAt: base.Add(-age),
	}
}

// testStoreContract runs the behavior every backend must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)
		history, err := s.LoadHistory(ctx)
		require.NoError(t, err)
		assert.Empty(t, history)

		favorites, err := s.LoadFavorites(ctx)
		require.NoError(t, err)
		assert.Empty(t, favorites)

		kit, err := s.LoadBrandKit(ctx)
		require.NoError(t, err)
		assert.Nil(t, kit)
	})

	t.Run("HistorySortedNewestFirst", func(t *testing.T) {
		s := newStore(t)
		saved := []record.Generation{generation("b", 2*time.Hour), generation("a", 3*time.Hour), generation("c", time.Hour)}
		require.NoError(t, s.SaveHistory(ctx, saved))

		loaded, err := s.LoadHistory(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{loaded[0].ID, loaded[1].ID, loaded[2].ID})
		assert.True(t, loaded[0].Results[1].Equal(saved[2].Results[1]))
		assert.True(t, loaded[0].CreatedAt.Equal(saved[2].CreatedAt))
	})

	t.Run("ReplaceAllIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		saved := []record.Favorite{favorite("x", time.Minute), favorite("y", time.Second), favorite("z", time.Hour)}
		require.NoError(t, s.SaveFavorites(ctx, saved))
		require.NoError(t, s.SaveFavorites(ctx, saved))

		loaded, err := s.LoadFavorites(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		assert.Equal(t, []string{"y", "x", "z"}, []string{loaded[0].ID, loaded[1].ID, loaded[2].ID})
	})

	t.Run("SaveReplacesPreviousCollection", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveHistory(ctx, []record.Generation{generation("old", time.Hour)}))
		require.NoError(t, s.SaveHistory(ctx, []record.Generation{generation("new", time.Minute)}))

		loaded, err := s.LoadHistory(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "new", loaded[0].ID)

		require.NoError(t, s.SaveHistory(ctx, nil))
		loaded, err = s.LoadHistory(ctx)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})

	t.Run("BrandKitSingleton", func(t *testing.T) {
		s := newStore(t)
		kit := record.BrandKit{
			Enabled:   true,
			Palette:   []string{"#000", "#ffffff"},
			Voice:     "bold",
			FontStyle: "serif",
			Logo:      &record.Image{Data: []byte("logo"), MIMEType: "image/png"},
		}
		require.NoError(t, s.SaveBrandKit(ctx, kit))
		kit.Voice = "quiet"
		require.NoError(t, s.SaveBrandKit(ctx, kit))

		loaded, err := s.LoadBrandKit(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, kit, *loaded)
	})
}

func TestFileStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_AtomicWriteLeavesNoTempFile(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.SaveHistory(context.Background(), []record.Generation{generation("a", 0)}))

	_, err = os.Stat(filepath.Join(s.Dir(), historyFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Dir(), historyFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		version string
		wantErr bool
	}{
		{"v1.0.0", false},
		{"v1.4.2", false},
		{"v2.0.0", true},
		{"", true},
		{"garbage", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			content := fmt.Sprintf(`{"schema_version": %q, "records": []}`, tt.version)
			require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), historyFile), []byte(content), 0644))

			_, err = s.LoadHistory(ctx)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSchemaVersion)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), favoritesFile), []byte("{not json"), 0644))

	_, err = s.LoadFavorites(context.Background())
	assert.Error(t, err)
}

func TestFileStore_BrandKitSurvivesUnreadableSettings(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), settingsFile), []byte("junk"), 0644))

	require.NoError(t, s.SaveBrandKit(ctx, record.BrandKit{Voice: "v"}))
	kit, err := s.LoadBrandKit(ctx)
	require.NoError(t, err)
	require.NotNil(t, kit)
	assert.Equal(t, "v", kit.Voice)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PRODUCTSCENE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PRODUCTSCENE_TEST_DATABASE_URL not set")
	}
	testStoreContract(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, url)
		require.NoError(t, err)
		_, err = s.db.ExecContext(ctx, `TRUNCATE generations, favorites, settings`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
