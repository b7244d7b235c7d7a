package workspace

import (
	"context"
	"fmt"
	"image"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/mask"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/dixieflatline76/ProductScene/util/log"
)

// eraserTarget is the result the open eraser paints over.
type eraserTarget struct {
	generationID string
	index        int
}

// OpenEraser enters eraser mode over the selected result shown at display
// size.
func (w *Workspace) OpenEraser(display mask.Size, brush float64) (EraserState, error) {
	w.mu.Lock()
	if w.current == nil {
		w.mu.Unlock()
		return EraserState{}, ErrNoResults
	}
	img, ok := w.current.Selected()
	if !ok {
		w.mu.Unlock()
		return EraserState{}, ErrNoResults
	}
	native, err := imageutil.Size(img)
	if err != nil {
		w.mu.Unlock()
		return EraserState{}, err
	}
	if err := w.eraser.Open(native, display, brush); err != nil {
		w.mu.Unlock()
		return EraserState{}, err
	}
	w.target = eraserTarget{generationID: w.current.ID, index: w.current.SelectedIndex}
	st := w.eraserStateLocked()
	w.unlockAndPublish(EventState)
	return st, nil
}

// ResizeEraser updates the display size after a layout change.
func (w *Workspace) ResizeEraser(display mask.Size) error {
	return w.eraserStep(func(e *mask.Eraser) error { return e.Resize(display) })
}

// SetEraserBrush changes the on-screen brush radius for the next stroke.
func (w *Workspace) SetEraserBrush(radius float64) error {
	return w.eraserStep(func(e *mask.Eraser) error { return e.SetBrush(radius) })
}

// EraserDown starts a stroke at a display point.
func (w *Workspace) EraserDown(x, y float64) error {
	return w.eraserStep(func(e *mask.Eraser) error { return e.PointerDown(x, y) })
}

// EraserMove extends the stroke in progress.
func (w *Workspace) EraserMove(x, y float64) error {
	return w.eraserStep(func(e *mask.Eraser) error { return e.PointerMove(x, y) })
}

// EraserUp ends the stroke in progress.
func (w *Workspace) EraserUp() error {
	return w.eraserStep(func(e *mask.Eraser) error {
		e.PointerUp()
		return nil
	})
}

// EraserLeave ends the stroke in progress when the pointer leaves the canvas.
func (w *Workspace) EraserLeave() error {
	return w.eraserStep(func(e *mask.Eraser) error {
		e.PointerLeave()
		return nil
	})
}

// EraserTouchEnd ends the stroke in progress when the touch is lifted.
func (w *Workspace) EraserTouchEnd() error {
	return w.eraserStep(func(e *mask.Eraser) error {
		e.TouchEnd()
		return nil
	})
}

func (w *Workspace) eraserStep(fn func(*mask.Eraser) error) error {
	w.mu.Lock()
	if !w.eraser.Active() {
		w.mu.Unlock()
		return mask.ErrNotActive
	}
	if err := fn(w.eraser); err != nil {
		w.mu.Unlock()
		return err
	}
	w.unlockAndPublish(EventState)
	return nil
}

// EraserPreview returns the target result with the strokes drawn over it.
func (w *Workspace) EraserPreview(ctx context.Context) (record.Image, error) {
	w.mu.Lock()
	if !w.eraser.Active() {
		w.mu.Unlock()
		return record.Image{}, mask.ErrNotActive
	}
	img, err := w.targetImageLocked()
	strokes := w.eraser.Strokes()
	w.mu.Unlock()
	if err != nil {
		return record.Image{}, err
	}
	return mask.Overlay(ctx, img, strokes)
}

// CancelEraser leaves eraser mode and drops any strokes.
func (w *Workspace) CancelEraser() {
	w.mu.Lock()
	w.eraser.Close()
	w.target = eraserTarget{}
	w.unlockAndPublish(EventState)
}

// ApplyEraser sends the painted mask to the inpainting model. The strokes are
// discarded either way. On success the target result is replaced and eraser
// mode closes. On failure the result is unchanged, the error is shown and the
// eraser stays open with an empty mask.
func (w *Workspace) ApplyEraser(ctx context.Context) (record.Image, error) {
	w.mu.Lock()
	if !w.eraser.Active() {
		w.mu.Unlock()
		return record.Image{}, mask.ErrNotActive
	}
	img, err := w.targetImageLocked()
	if err != nil {
		w.mu.Unlock()
		return record.Image{}, err
	}
	if w.busy[opInpaint] {
		w.mu.Unlock()
		return record.Image{}, ErrBusy
	}
	// The strokes are spent by this attempt whatever its outcome.
	strokes := w.eraser.Take()
	if len(strokes) == 0 {
		w.mu.Unlock()
		return record.Image{}, ErrNoStrokes
	}
	_ = w.beginLocked(opInpaint)
	target := w.target
	native := w.eraser.NativeSize()
	w.unlockAndPublish(EventState)

	out, err := w.inpaint(ctx, img, strokes, native)

	w.mu.Lock()
	w.endLocked(opInpaint)
	if err != nil {
		log.Printf("Workspace: Inpainting failed: %v", err)
		w.failLocked(fmt.Errorf("eraser failed: %w", err))
		w.unlockAndPublish(EventState)
		return record.Image{}, err
	}
	if w.current == nil || w.current.ID != target.generationID || target.index >= len(w.current.Results) {
		// The batch changed while the request was out.
		w.unlockAndPublish(EventState)
		return record.Image{}, ErrNoResults
	}
	w.current.Results[target.index] = out
	// Only the newest history entry follows the edit. Older entries are left as
	// they were generated.
	if len(w.history) > 0 && w.history[0].ID == target.generationID {
		g := w.history[0].Clone()
		if target.index < len(g.Results) {
			g.Results[target.index] = out
			w.history[0] = g
			w.scheduleSaveLocked(store.CollectionHistory)
		}
	}
	w.eraser.Close()
	w.target = eraserTarget{}
	w.clearErrorLocked()
	w.unlockAndPublish(EventState, EventHistory)
	return out, nil
}

func (w *Workspace) inpaint(ctx context.Context, img record.Image, strokes []mask.Stroke, native image.Point) (record.Image, error) {
	m, err := mask.Encode(strokes, native)
	if err != nil {
		return record.Image{}, err
	}
	return w.orch.Inpaint(ctx, img, m)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) targetImageLocked() (record.Image, error) {
	if w.current == nil || w.current.ID != w.target.generationID {
		return record.Image{}, ErrNoResults
	}
	return w.resultLocked(w.target.index)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) eraserStateLocked() EraserState {
	size := w.eraser.NativeSize()
	return EraserState{
		Active:  w.eraser.Active(),
		Drawing: w.eraser.Drawing(),
		Strokes: len(w.eraser.Strokes()),
		Width:   size.X,
		Height:  size.Y,
	}
}
