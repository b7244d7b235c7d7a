// Package mask captures freehand eraser strokes over a displayed result and
// rasterizes them into the binary mask sent to the inpainting model.
package mask

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// DefaultBrushRadius is the on-screen brush radius in display pixels.
const DefaultBrushRadius = 20.0

var (
	// ErrNotActive is returned when strokes are fed to a closed eraser.
	ErrNotActive = errors.New("eraser is not active")
	// ErrInvalidSize is returned for non-positive display or image sizes.
	ErrInvalidSize = errors.New("invalid eraser size")
)

// Point is a stroke point in native image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a polyline drawn with one brush radius, in native image pixels.
type Stroke struct {
	Radius float64 `json:"radius"`
	Points []Point `json:"points"`
}

// Size is a display size in CSS pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Eraser collects strokes while eraser mode is open. Pointer coordinates arrive
// in display pixels and are stored in native pixels.
type Eraser struct {
	mu      sync.Mutex
	active  bool
	native  image.Point
	display Size
	brush   float64
	strokes []Stroke
	drawing *Stroke
}

// NewEraser returns a closed eraser.
func NewEraser() *Eraser {
	return &Eraser{brush: DefaultBrushRadius}
}

// Open starts eraser mode over an image of the given native size shown at the
// given display size. Any previous strokes are dropped.
func (e *Eraser) Open(native image.Point, display Size, brushRadius float64) error {
	if native.X <= 0 || native.Y <= 0 {
		return fmt.Errorf("%w: native %v", ErrInvalidSize, native)
	}
	if display.W <= 0 || display.H <= 0 {
		display = Size{W: float64(native.X), H: float64(native.Y)}
	}
	if brushRadius <= 0 {
		brushRadius = DefaultBrushRadius
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
	e.native = native
	e.display = display
	e.brush = brushRadius
	e.strokes = nil
	e.drawing = nil
	return nil
}

// Close leaves eraser mode and discards all strokes.
func (e *Eraser) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.strokes = nil
	e.drawing = nil
}

// Active reports whether eraser mode is open.
func (e *Eraser) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Drawing reports whether a stroke is in progress.
func (e *Eraser) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawing != nil
}

// NativeSize returns the size of the image being masked.
func (e *Eraser) NativeSize() image.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.native
}

// Resize updates the display size, e.g. after the view is resized.
func (e *Eraser) Resize(display Size) error {
	if display.W <= 0 || display.H <= 0 {
		return fmt.Errorf("%w: display %vx%v", ErrInvalidSize, display.W, display.H)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ErrNotActive
	}
	e.display = display
	return nil
}

// SetBrush changes the display brush radius for the next stroke.
func (e *Eraser) SetBrush(radius float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ErrNotActive
	}
	if radius > 0 {
		e.brush = radius
	}
	return nil
}

// ToNative maps a display coordinate onto native image pixels.
func ToNative(x, y float64, display Size, native image.Point) Point {
	return Point{
		X: x * float64(native.X) / display.W,
		Y: y * float64(native.Y) / display.H,
	}
}

// ScaleRadius maps a display brush radius onto native pixels using the mean of
// the horizontal and vertical ratios.
func ScaleRadius(r float64, display Size, native image.Point) float64 {
	sx := float64(native.X) / display.W
	sy := float64(native.Y) / display.H
	return r * (sx + sy) / 2
}

// PointerDown starts a stroke. A stroke still in progress is finalized first.
func (e *Eraser) PointerDown(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ErrNotActive
	}
	e.finishLocked()
	e.drawing = &Stroke{
		Radius: ScaleRadius(e.brush, e.display, e.native),
		Points: []Point{ToNative(x, y, e.display, e.native)},
	}
	return nil
}

// PointerMove extends the stroke in progress. Moves without a pressed pointer
// are ignored.
func (e *Eraser) PointerMove(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ErrNotActive
	}
	if e.drawing == nil {
		return nil
	}
	e.drawing.Points = append(e.drawing.Points, ToNative(x, y, e.display, e.native))
	return nil
}

// PointerUp finalizes the stroke in progress.
func (e *Eraser) PointerUp() { e.finish() }

// PointerLeave finalizes the stroke in progress when the pointer leaves the
// canvas.
func (e *Eraser) PointerLeave() { e.finish() }

// TouchEnd finalizes the stroke in progress.
func (e *Eraser) TouchEnd() { e.finish() }

func (e *Eraser) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishLocked()
}

func (e *Eraser) finishLocked() {
	if e.drawing == nil {
		return
	}
	e.strokes = append(e.strokes, *e.drawing)
	e.drawing = nil
}

// Strokes returns the finished strokes.
func (e *Eraser) Strokes() []Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Stroke, len(e.strokes))
	copy(out, e.strokes)
	return out
}

// Take finalizes any stroke in progress, returns all strokes and clears them.
// Eraser mode stays open.
func (e *Eraser) Take() []Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishLocked()
	out := e.strokes
	e.strokes = nil
	return out
}
