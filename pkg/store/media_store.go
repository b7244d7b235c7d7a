package store

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dixieflatline76/ProductScene/util/log"
)

// ErrMediaNotFound is returned when no file exists for a media ID.
var ErrMediaNotFound = errors.New("media not found")

// MediaStore keeps rendered videos as <id><ext> files under one directory.
type MediaStore struct {
	rootDir string
}

// NewMediaStore returns a media store rooted at rootDir.
func NewMediaStore(rootDir string) *MediaStore {
	return &MediaStore{rootDir: rootDir}
}

// Dir returns the media directory.
func (m *MediaStore) Dir() string {
	return m.rootDir
}

// EnsureDirs creates the media directory.
func (m *MediaStore) EnsureDirs() error {
	if err := os.MkdirAll(m.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create media directory %s: %w", m.rootDir, err)
	}
	return nil
}

// validateID ensures the ID does not contain path traversal characters.
func (m *MediaStore) validateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) || strings.Contains(id, string(filepath.Separator)) {
		return fmt.Errorf("invalid media id %q: contains illegal characters", id)
	}
	return nil
}

// Save writes data for id and returns the path written.
func (m *MediaStore) Save(id string, data []byte, mimeType string) (string, error) {
	if err := m.validateID(id); err != nil {
		return "", err
	}
	if err := m.EnsureDirs(); err != nil {
		return "", err
	}

	path := filepath.Join(m.rootDir, id+extensionFor(mimeType))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to rename media %s: %w", id, err)
	}
	log.Debugf("MediaStore: saved %s (%d bytes)", path, len(data))
	return path, nil
}

// Open returns the bytes and content type stored for id.
func (m *MediaStore) Open(id string) ([]byte, string, error) {
	path, err := m.find(id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading media %s: %w", id, err)
	}
	contentType := mimeFor(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Exists reports whether a file is stored for id.
func (m *MediaStore) Exists(id string) bool {
	_, err := m.find(id)
	return err == nil
}

// Delete removes every file stored for id. Missing files are not an error.
func (m *MediaStore) Delete(id string) error {
	if err := m.validateID(id); err != nil {
		return err
	}
	matches, _ := filepath.Glob(filepath.Join(m.rootDir, id+".*"))
	for _, f := range matches {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			log.Printf("MediaStore: Failed to delete %s: %v", f, err)
		}
	}
	return nil
}

// CleanupOrphans removes files whose ID is not in knownIDs and returns the
// number removed.
func (m *MediaStore) CleanupOrphans(knownIDs map[string]bool) int {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("MediaStore: Error reading media dir during cleanup: %v", err)
		}
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasSuffix(name, ".tmp") {
			id = strings.TrimSuffix(id, filepath.Ext(id))
		}
		if knownIDs[id] {
			continue
		}
		if err := os.Remove(filepath.Join(m.rootDir, name)); err == nil {
			deleted++
		}
	}
	if deleted > 0 {
		log.Printf("MediaStore: Orphan cleanup removed %d files.", deleted)
	}
	return deleted
}

func (m *MediaStore) find(id string) (string, error) {
	if err := m.validateID(id); err != nil {
		return "", err
	}
	matches, _ := filepath.Glob(filepath.Join(m.rootDir, id+".*"))
	for _, f := range matches {
		if !strings.HasSuffix(f, ".tmp") {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMediaNotFound, id)
}

func extensionFor(mimeType string) string {
	mt := strings.TrimSpace(strings.ToLower(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func mimeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".bin":
		return ""
	}
	return mime.TypeByExtension(ext)
}
