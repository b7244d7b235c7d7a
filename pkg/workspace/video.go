package workspace

import (
	"context"
	"fmt"

	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// GenerateVideo animates the selected result and returns the media ID of the
// saved clip. The clip is referenced from the batch, its history entry and the
// matching favorite.
func (w *Workspace) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	w.mu.Lock()
	if w.current == nil {
		w.mu.Unlock()
		return "", ErrNoResults
	}
	img, ok := w.current.Selected()
	if !ok {
		w.mu.Unlock()
		return "", ErrNoResults
	}
	if w.video == nil || w.media == nil {
		w.mu.Unlock()
		return "", scene.ErrVideoUnavailable
	}
	if err := w.beginLocked(opVideo); err != nil {
		w.mu.Unlock()
		return "", err
	}
	genID := w.current.ID
	w.unlockAndPublish(EventState)

	ref, err := w.renderVideo(ctx, img, prompt)

	w.mu.Lock()
	w.endLocked(opVideo)
	if err != nil {
		log.Printf("Workspace: Video generation failed: %v", err)
		w.failLocked(fmt.Errorf("video failed: %w", err))
		w.unlockAndPublish(EventState)
		return "", err
	}

	if w.current != nil && w.current.ID == genID {
		w.current.VideoRef = ref
	}
	if i := w.historyIndexLocked(genID); i >= 0 {
		w.history[i].VideoRef = ref
		w.scheduleSaveLocked(store.CollectionHistory)
	}
	if i := w.favoriteIndexLocked(img); i >= 0 {
		w.favorites[i].VideoRef = ref
		w.scheduleSaveLocked(store.CollectionFavorites)
	}
	w.clearErrorLocked()
	w.unlockAndPublish(EventState, EventHistory, EventFavorites)
	return ref, nil
}

func (w *Workspace) renderVideo(ctx context.Context, img record.Image, prompt string) (string, error) {
	clip, err := w.video.Render(ctx, img, prompt)
	if err != nil {
		return "", err
	}
	ref := record.NewID()
	if _, err := w.media.Save(ref, clip.Data, clip.MIMEType); err != nil {
		return "", fmt.Errorf("saving video: %w", err)
	}
	return ref, nil
}

// Media returns the bytes and content type of a saved clip.
func (w *Workspace) Media(id string) ([]byte, string, error) {
	if w.media == nil {
		return nil, "", fmt.Errorf("media %s: %w", id, ErrNotFound)
	}
	data, contentType, err := w.media.Open(id)
	if err != nil {
		return nil, "", fmt.Errorf("media %s: %w", id, ErrNotFound)
	}
	return data, contentType, nil
}
