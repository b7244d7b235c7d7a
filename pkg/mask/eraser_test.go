package mask

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNative_ScalesByDimensionRatio(t *testing.T) {
	display := Size{W: 400, H: 300}
	native := image.Pt(800, 900)

	assert.Equal(t, Point{X: 200, Y: 300}, ToNative(100, 100, display, native))
	assert.Equal(t, Point{X: 800, Y: 900}, ToNative(400, 300, display, native))
	assert.Equal(t, 25.0, ScaleRadius(10, display, native))
}

func TestEraser_RejectsInputWhenClosed(t *testing.T) {
	e := NewEraser()

	assert.ErrorIs(t, e.PointerDown(1, 1), ErrNotActive)
	assert.ErrorIs(t, e.PointerMove(2, 2), ErrNotActive)
	assert.ErrorIs(t, e.SetBrush(5), ErrNotActive)
	assert.Empty(t, e.Strokes())
}

func TestEraser_CapturesScaledStroke(t *testing.T) {
	e := NewEraser()
	require.NoError(t, e.Open(image.Pt(800, 900), Size{W: 400, H: 300}, 10))

	require.NoError(t, e.PointerDown(10, 10))
	assert.True(t, e.Drawing())
	require.NoError(t, e.PointerMove(20, 10))
	require.NoError(t, e.PointerMove(30, 20))
	e.PointerUp()
	assert.False(t, e.Drawing())

	strokes := e.Strokes()
	require.Len(t, strokes, 1)
	assert.Equal(t, 25.0, strokes[0].Radius)
	assert.Equal(t, []Point{{20, 30}, {40, 30}, {60, 60}}, strokes[0].Points)
}

func TestEraser_StrokeEndEvents(t *testing.T) {
	ends := map[string]func(*Eraser){
		"pointer up":    (*Eraser).PointerUp,
		"pointer leave": (*Eraser).PointerLeave,
		"touch end":     (*Eraser).TouchEnd,
	}
	for name, end := range ends {
		t.Run(name, func(t *testing.T) {
			e := NewEraser()
			require.NoError(t, e.Open(image.Pt(100, 100), Size{}, 0))
			require.NoError(t, e.PointerDown(1, 1))
			end(e)

			assert.False(t, e.Drawing())
			assert.Len(t, e.Strokes(), 1)

			// Later moves do not extend the finished stroke.
			require.NoError(t, e.PointerMove(50, 50))
			assert.Len(t, e.Strokes()[0].Points, 1)
		})
	}
}

func TestEraser_DisplayDefaultsToNative(t *testing.T) {
	e := NewEraser()
	require.NoError(t, e.Open(image.Pt(64, 32), Size{}, 4))
	require.NoError(t, e.PointerDown(10, 5))
	e.PointerUp()

	s := e.Strokes()[0]
	assert.Equal(t, Point{X: 10, Y: 5}, s.Points[0])
	assert.Equal(t, 4.0, s.Radius)
}

func TestEraser_TakeFinalizesAndClears(t *testing.T) {
	e := NewEraser()
	require.NoError(t, e.Open(image.Pt(100, 100), Size{W: 100, H: 100}, 5))
	require.NoError(t, e.PointerDown(1, 1))
	e.PointerUp()
	require.NoError(t, e.PointerDown(5, 5))

	strokes := e.Take()
	assert.Len(t, strokes, 2)
	assert.Empty(t, e.Strokes())
	assert.False(t, e.Drawing())
	assert.True(t, e.Active())
}

func TestEraser_CloseDiscards(t *testing.T) {
	e := NewEraser()
	require.NoError(t, e.Open(image.Pt(100, 100), Size{W: 50, H: 50}, 5))
	require.NoError(t, e.PointerDown(1, 1))
	e.Close()

	assert.False(t, e.Active())
	assert.Empty(t, e.Take())
}

func TestEraser_OpenValidatesSize(t *testing.T) {
	e := NewEraser()
	assert.ErrorIs(t, e.Open(image.Point{}, Size{W: 1, H: 1}, 1), ErrInvalidSize)

	require.NoError(t, e.Open(image.Pt(10, 10), Size{W: 10, H: 10}, 1))
	assert.ErrorIs(t, e.Resize(Size{W: 0, H: 5}), ErrInvalidSize)
	require.NoError(t, e.Resize(Size{W: 5, H: 5}))
	require.NoError(t, e.PointerDown(1, 1))
	e.PointerUp()
	assert.Equal(t, Point{X: 2, Y: 2}, e.Strokes()[0].Points[0])
}
