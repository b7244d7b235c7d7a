package workspace

import (
	"fmt"
	"image"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// History returns every generation, newest first.
func (w *Workspace) History() []record.Generation {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]record.Generation, len(w.history))
	copy(out, w.history)
	return out
}

// HistoryEntry returns the generation with id.
func (w *Workspace) HistoryEntry(id string) (record.Generation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.historyIndexLocked(id); i >= 0 {
		return w.history[i].Clone(), nil
	}
	return record.Generation{}, fmt.Errorf("generation %s: %w", id, ErrNotFound)
}

// ReuseHistory restores the source, prompt and results of a past generation.
func (w *Workspace) ReuseHistory(id string) error {
	w.mu.Lock()
	if w.busy[opGenerate] || w.busy[opUpload] {
		w.mu.Unlock()
		return ErrBusy
	}
	i := w.historyIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	g := w.history[i].Clone()
	w.mu.Unlock()

	size, err := imageutil.Size(g.Source)
	if err != nil {
		log.Printf("Workspace: Could not size reused source %s: %v", id, err)
	}

	w.mu.Lock()
	w.closeModesLocked()
	w.source = g.Source
	w.sourceSize = size
	w.prompt = g.Prompt
	w.current = &g
	w.status = StatusSuccess
	w.errMsg = ""
	w.unlockAndPublish(EventState)
	return nil
}

// DeleteHistory removes one generation and any clip only it referenced.
func (w *Workspace) DeleteHistory(id string) error {
	w.mu.Lock()
	i := w.historyIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	removed := w.history[i]
	w.history = append(w.history[:i:i], w.history[i+1:]...)
	w.dropUnreferencedMediaLocked(removed.VideoRef)
	w.scheduleSaveLocked(store.CollectionHistory)
	w.unlockAndPublish(EventState, EventHistory)
	return nil
}

// ClearHistory removes every generation. Favorites and the current batch are
// kept.
func (w *Workspace) ClearHistory() {
	w.mu.Lock()
	removed := w.history
	w.history = nil
	for _, g := range removed {
		w.dropUnreferencedMediaLocked(g.VideoRef)
	}
	w.scheduleSaveLocked(store.CollectionHistory)
	w.unlockAndPublish(EventState, EventHistory)
}

// BrandKit returns the stored brand kit, or nil if none was saved.
func (w *Workspace) BrandKit() *record.BrandKit {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.brand == nil {
		return nil
	}
	kit := *w.brand
	return &kit
}

// UpdateBrandKit validates and stores kit.
func (w *Workspace) UpdateBrandKit(kit record.BrandKit) error {
	if err := kit.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	w.brand = &kit
	w.scheduleSaveLocked(store.BrandKitKey)
	w.unlockAndPublish(EventState, EventBrandKit)
	return nil
}

// Reset clears the source, prompt, results, status and open modes. History,
// favorites and the brand kit are kept.
func (w *Workspace) Reset() error {
	w.mu.Lock()
	if len(w.busy) > 0 {
		w.mu.Unlock()
		return ErrBusy
	}
	w.closeModesLocked()
	w.source = record.Image{}
	w.sourceSize = image.Point{}
	w.prompt = ""
	w.current = nil
	w.status = StatusIdle
	w.errMsg = ""
	w.unlockAndPublish(EventState)
	return nil
}
