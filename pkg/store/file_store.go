package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/util/log"
	"golang.org/x/mod/semver"
)

const (
	historyFile   = "history.json"
	favoritesFile = "favorites.json"
	settingsFile  = "settings.json"
)

// envelope is the on-disk layout of every file.
type envelope struct {
	SchemaVersion string          `json:"schema_version"`
	Records       json.RawMessage `json:"records"`
}

// FileStore keeps each collection in a JSON file under one directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// LoadHistory implements Store.
func (s *FileStore) LoadHistory(_ context.Context) ([]record.Generation, error) {
	var history []record.Generation
	if err := s.read(historyFile, &history); err != nil {
		return nil, err
	}
	sortGenerations(history)
	return history, nil
}

// SaveHistory implements Store.
func (s *FileStore) SaveHistory(_ context.Context, history []record.Generation) error {
	if history == nil {
		history = []record.Generation{}
	}
	return s.write(historyFile, history)
}

// LoadFavorites implements Store.
func (s *FileStore) LoadFavorites(_ context.Context) ([]record.Favorite, error) {
	var favorites []record.Favorite
	if err := s.read(favoritesFile, &favorites); err != nil {
		return nil, err
	}
	sortFavorites(favorites)
	return favorites, nil
}

// SaveFavorites implements Store.
func (s *FileStore) SaveFavorites(_ context.Context, favorites []record.Favorite) error {
	if favorites == nil {
		favorites = []record.Favorite{}
	}
	return s.write(favoritesFile, favorites)
}

// LoadBrandKit implements Store.
func (s *FileStore) LoadBrandKit(_ context.Context) (*record.BrandKit, error) {
	settings := map[string]json.RawMessage{}
	if err := s.read(settingsFile, &settings); err != nil {
		return nil, err
	}
	raw, ok := settings[BrandKitKey]
	if !ok {
		return nil, nil
	}
	var kit record.BrandKit
	if err := json.Unmarshal(raw, &kit); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", BrandKitKey, err)
	}
	return &kit, nil
}

// SaveBrandKit implements Store.
func (s *FileStore) SaveBrandKit(_ context.Context, kit record.BrandKit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := map[string]json.RawMessage{}
	if err := s.readLocked(settingsFile, &settings); err != nil {
		log.Printf("Store: Replacing unreadable settings: %v", err)
		settings = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(kit)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", BrandKitKey, err)
	}
	settings[BrandKitKey] = raw
	return s.writeLocked(settingsFile, settings)
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(name, v)
}

// readLocked leaves v untouched when the file does not exist.
func (s *FileStore) readLocked(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := checkSchema(env.SchemaVersion); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(env.Records) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Records, v); err != nil {
		return fmt.Errorf("decoding %s records: %w", path, err)
	}
	return nil
}

func (s *FileStore) write(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(name, v)
}

// writeLocked replaces the file atomically through a temp file and rename.
func (s *FileStore) writeLocked(name string, v any) error {
	records, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(envelope{SchemaVersion: SchemaVersion, Records: records}); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

// checkSchema accepts any version with the same major as SchemaVersion.
func checkSchema(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q", ErrSchemaVersion, v)
	}
	if semver.Major(v) != semver.Major(SchemaVersion) {
		return fmt.Errorf("%w: %s, want %s", ErrSchemaVersion, v, semver.Major(SchemaVersion))
	}
	return nil
}
