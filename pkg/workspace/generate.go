package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// Generate runs one batch for the source and prompt. On success the batch
// becomes the current results and is prepended to history. On failure the
// previous results stay visible.
func (w *Workspace) Generate(ctx context.Context) (record.Generation, error) {
	w.mu.Lock()
	if w.source.IsZero() {
		w.mu.Unlock()
		return record.Generation{}, ErrNoSource
	}
	if strings.TrimSpace(w.prompt) == "" {
		w.mu.Unlock()
		return record.Generation{}, scene.ErrEmptyPrompt
	}
	if w.busy[opUpload] {
		w.mu.Unlock()
		return record.Generation{}, ErrBusy
	}
	if err := w.beginLocked(opGenerate); err != nil {
		w.mu.Unlock()
		return record.Generation{}, err
	}
	req := scene.Request{Source: w.source, Description: w.prompt}
	if w.brand != nil && w.brand.Enabled {
		kit := *w.brand
		req.Brand = &kit
	}
	w.status = StatusGenerating
	w.errMsg = ""
	w.unlockAndPublish(EventState)

	g, err := w.orch.Generate(ctx, req)

	w.mu.Lock()
	w.endLocked(opGenerate)
	if err != nil {
		log.Printf("Workspace: Generation failed: %v", err)
		w.failLocked(fmt.Errorf("generation failed: %w", err))
		w.unlockAndPublish(EventState)
		return record.Generation{}, err
	}
	current := g.Clone()
	w.current = &current
	w.eraser.Close()
	w.target = eraserTarget{}
	w.history = append([]record.Generation{g}, w.history...)
	w.status = StatusSuccess
	w.scheduleSaveLocked(store.CollectionHistory)
	w.unlockAndPublish(EventState, EventHistory)
	return g.Clone(), nil
}

// Current returns the current batch.
func (w *Workspace) Current() (record.Generation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return record.Generation{}, ErrNoResults
	}
	return w.current.Clone(), nil
}

// Result returns result index of the current batch.
func (w *Workspace) Result(index int) (record.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultLocked(index)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) resultLocked(index int) (record.Image, error) {
	if w.current == nil {
		return record.Image{}, ErrNoResults
	}
	if index < 0 || index >= len(w.current.Results) {
		return record.Image{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(w.current.Results))
	}
	return w.current.Results[index], nil
}

// SelectResult selects a result of the current batch. The choice is recorded
// in the history entry for the batch.
func (w *Workspace) SelectResult(index int) error {
	w.mu.Lock()
	if _, err := w.resultLocked(index); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.eraser.Active() {
		w.eraser.Close()
		w.target = eraserTarget{}
	}
	w.current.SelectedIndex = index
	if i := w.historyIndexLocked(w.current.ID); i >= 0 {
		w.history[i].SelectedIndex = index
		w.scheduleSaveLocked(store.CollectionHistory)
	}
	w.unlockAndPublish(EventState)
	return nil
}

// ToggleFavorite adds result index to favorites, or removes it if an equal
// image is already a favorite. It reports whether the image is now a
// favorite.
func (w *Workspace) ToggleFavorite(index int) (bool, error) {
	w.mu.Lock()
	img, err := w.resultLocked(index)
	if err != nil {
		w.mu.Unlock()
		return false, err
	}

	added := false
	if i := w.favoriteIndexLocked(img); i >= 0 {
		ref := w.favorites[i].VideoRef
		w.favorites = append(w.favorites[:i:i], w.favorites[i+1:]...)
		w.dropUnreferencedMediaLocked(ref)
	} else {
		fav := record.Favorite{
			ID:        record.NewID(),
			Image:     record.Image{Data: append([]byte(nil), img.Data...), MIMEType: img.MIMEType},
			Source:    w.current.Source,
			Prompt:    w.current.Prompt,
			CreatedAt: w.now(),
		}
		if index == w.current.SelectedIndex {
			fav.VideoRef = w.current.VideoRef
		}
		w.favorites = append([]record.Favorite{fav}, w.favorites...)
		added = true
	}
	w.scheduleSaveLocked(store.CollectionFavorites)
	w.unlockAndPublish(EventState, EventFavorites)
	return added, nil
}

// Favorites returns every favorite, newest first.
func (w *Workspace) Favorites() []record.Favorite {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]record.Favorite, len(w.favorites))
	copy(out, w.favorites)
	return out
}

// Favorite returns the favorite with id.
func (w *Workspace) Favorite(id string) (record.Favorite, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.favorites {
		if f.ID == id {
			return f, nil
		}
	}
	return record.Favorite{}, fmt.Errorf("favorite %s: %w", id, ErrNotFound)
}

// RemoveFavorite deletes the favorite with id.
func (w *Workspace) RemoveFavorite(id string) error {
	w.mu.Lock()
	for i, f := range w.favorites {
		if f.ID != id {
			continue
		}
		w.favorites = append(w.favorites[:i:i], w.favorites[i+1:]...)
		w.dropUnreferencedMediaLocked(f.VideoRef)
		w.scheduleSaveLocked(store.CollectionFavorites)
		w.unlockAndPublish(EventState, EventFavorites)
		return nil
	}
	w.mu.Unlock()
	return fmt.Errorf("favorite %s: %w", id, ErrNotFound)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) historyIndexLocked(id string) int {
	for i, g := range w.history {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// dropUnreferencedMediaLocked deletes a media file nothing refers to anymore.
// CALLER MUST HOLD w.mu
func (w *Workspace) dropUnreferencedMediaLocked(ref string) {
	if ref == "" || w.media == nil {
		return
	}
	if w.mediaRefsLocked()[ref] {
		return
	}
	if err := w.media.Delete(ref); err != nil {
		log.Printf("Workspace: Failed to delete media %s: %v", ref, err)
	}
}
