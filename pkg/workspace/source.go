package workspace

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
)

// SetSource replaces the source image with an uploaded payload. The current
// results are cleared and the status returns to IDLE.
func (w *Workspace) SetSource(ctx context.Context, data []byte, declaredMIME string) error {
	w.mu.Lock()
	if w.busy[opGenerate] {
		w.mu.Unlock()
		return ErrBusy
	}
	if err := w.beginLocked(opUpload); err != nil {
		w.mu.Unlock()
		return err
	}
	w.status = StatusUploading
	w.errMsg = ""
	w.unlockAndPublish(EventState)

	img, size, err := imageutil.Normalize(ctx, data, declaredMIME)

	w.mu.Lock()
	w.endLocked(opUpload)
	if err != nil {
		w.failLocked(fmt.Errorf("could not read image: %w", err))
		w.unlockAndPublish(EventState)
		return err
	}
	w.source = img
	w.sourceSize = size
	w.current = nil
	w.status = StatusIdle
	w.closeModesLocked()
	w.unlockAndPublish(EventState)
	return nil
}

// CaptureFrame sets the source from a camera still, which must be a JPEG.
func (w *Workspace) CaptureFrame(ctx context.Context, jpeg []byte) error {
	if got := imageutil.DetectMIME(jpeg, ""); got != imageutil.MIMEJPEG {
		err := fmt.Errorf("%w: camera frame is %s, want %s", imageutil.ErrUnsupportedType, got, imageutil.MIMEJPEG)
		w.mu.Lock()
		w.failLocked(err)
		w.unlockAndPublish(EventState)
		return err
	}
	return w.SetSource(ctx, jpeg, imageutil.MIMEJPEG)
}

// ClearSource drops the source image and the current results.
func (w *Workspace) ClearSource() error {
	w.mu.Lock()
	if w.busy[opGenerate] || w.busy[opUpload] {
		w.mu.Unlock()
		return ErrBusy
	}
	w.source = record.Image{}
	w.sourceSize = image.Point{}
	w.current = nil
	w.status = StatusIdle
	w.errMsg = ""
	w.closeModesLocked()
	w.unlockAndPublish(EventState)
	return nil
}

// Source returns the current source image.
func (w *Workspace) Source() (record.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source.IsZero() {
		return record.Image{}, ErrNoSource
	}
	return w.source, nil
}

// SetPrompt replaces the background description.
func (w *Workspace) SetPrompt(text string) {
	w.mu.Lock()
	w.prompt = text
	w.unlockAndPublish(EventState)
}

// ApplyPreset replaces the prompt with a preset description.
func (w *Workspace) ApplyPreset(name string) (string, error) {
	prompt, ok := scene.PresetPrompt(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	w.SetPrompt(prompt)
	return prompt, nil
}

// RefinePrompt asks the model to improve the prompt and stores the result. On
// any failure the prompt is left as it was.
func (w *Workspace) RefinePrompt(ctx context.Context) string {
	w.mu.Lock()
	source, prompt := w.source, w.prompt
	w.mu.Unlock()

	if strings.TrimSpace(prompt) == "" || w.orch == nil {
		return prompt
	}
	refined := w.orch.Refine(ctx, source, prompt)

	w.mu.Lock()
	// Keep edits made while the request was out.
	if w.prompt == prompt {
		w.prompt = refined
	}
	refined = w.prompt
	w.unlockAndPublish(EventState)
	return refined
}

// Suggestions returns scene ideas for the source, or the built-in list.
func (w *Workspace) Suggestions(ctx context.Context) []string {
	w.mu.Lock()
	source := w.source
	w.mu.Unlock()

	if w.orch == nil {
		return append([]string(nil), scene.DefaultSuggestions...)
	}
	return w.orch.Suggest(ctx, source)
}

// CALLER MUST HOLD w.mu
func (w *Workspace) closeModesLocked() {
	if w.crop != nil {
		w.crop.history.Close()
		w.crop = nil
	}
	w.eraser.Close()
	w.target = eraserTarget{}
}
