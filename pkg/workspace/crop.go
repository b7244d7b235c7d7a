package workspace

import (
	"context"
	"fmt"
	"image"

	"github.com/dixieflatline76/ProductScene/pkg/crop"
)

// cropSession is the open crop editor over the source.
type cropSession struct {
	history *crop.History
	size    image.Point
}

// OpenCrop enters crop mode over the source. The baseline is the full image.
func (w *Workspace) OpenCrop() (crop.State, error) {
	w.mu.Lock()
	if w.source.IsZero() {
		w.mu.Unlock()
		return crop.State{}, ErrNoSource
	}
	if w.crop != nil {
		w.crop.history.Close()
	}
	h := crop.NewHistory(crop.Baseline(), w.cropQuiet, crop.WithCommitHook(func(st crop.State) {
		w.publish(EventCrop, st)
	}))
	w.crop = &cropSession{history: h, size: w.sourceSize}
	st := h.State()
	w.unlockAndPublish(EventState)
	return st, nil
}

// ObserveCrop feeds a widget state into the crop history.
func (w *Workspace) ObserveCrop(s crop.Snapshot, origin crop.Origin) (crop.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.crop == nil {
		return crop.State{}, ErrCropNotOpen
	}
	w.crop.history.Observe(s, origin)
	return w.crop.history.State(), nil
}

// UndoCrop steps the crop back one committed edit.
func (w *Workspace) UndoCrop() (crop.State, bool, error) {
	return w.stepCrop((*crop.History).Undo)
}

// RedoCrop re-applies the last undone crop edit.
func (w *Workspace) RedoCrop() (crop.State, bool, error) {
	return w.stepCrop((*crop.History).Redo)
}

func (w *Workspace) stepCrop(step func(*crop.History) (crop.Snapshot, bool)) (crop.State, bool, error) {
	w.mu.Lock()
	if w.crop == nil {
		w.mu.Unlock()
		return crop.State{}, false, ErrCropNotOpen
	}
	_, changed := step(w.crop.history)
	st := w.crop.history.State()
	w.mu.Unlock()

	if changed {
		w.publish(EventCrop, st)
	}
	return st, changed, nil
}

// SuggestCrop proposes a content-aware crop for aspect and records it as a
// user edit.
func (w *Workspace) SuggestCrop(ctx context.Context, aspect float64) (crop.State, error) {
	w.mu.Lock()
	if w.crop == nil {
		w.mu.Unlock()
		return crop.State{}, ErrCropNotOpen
	}
	source := w.source
	w.mu.Unlock()

	snap, _, err := crop.Suggest(ctx, source, aspect)
	if err != nil {
		return crop.State{}, fmt.Errorf("suggesting crop: %w", err)
	}
	return w.ObserveCrop(snap, crop.UserEdit)
}

// ConfirmCrop rasterizes the live crop selection into a new source image and
// leaves crop mode. On failure crop mode stays open and the error is shown.
func (w *Workspace) ConfirmCrop(ctx context.Context) error {
	w.mu.Lock()
	if w.crop == nil {
		w.mu.Unlock()
		return ErrCropNotOpen
	}
	if err := w.beginLocked(opCrop); err != nil {
		w.mu.Unlock()
		return err
	}
	session := w.crop
	source := w.source
	region := crop.RegionFor(session.history.Live(), session.size)
	w.mu.Unlock()

	out, err := crop.Rasterize(ctx, source, region)

	w.mu.Lock()
	w.endLocked(opCrop)
	if err != nil {
		w.failLocked(fmt.Errorf("crop failed: %w", err))
		w.unlockAndPublish(EventState)
		return err
	}
	if w.crop != session {
		// Crop mode was closed or reopened meanwhile.
		w.unlockAndPublish(EventState)
		return ErrCropNotOpen
	}
	session.history.Close()
	w.crop = nil
	w.source = out
	w.sourceSize = region.Size()
	w.clearErrorLocked()
	w.unlockAndPublish(EventState)
	return nil
}

// CancelCrop leaves crop mode without touching the source.
func (w *Workspace) CancelCrop() {
	w.mu.Lock()
	if w.crop != nil {
		w.crop.history.Close()
		w.crop = nil
	}
	w.unlockAndPublish(EventState)
}
