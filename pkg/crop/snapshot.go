// Package crop holds the crop editor: the widget state, its debounced undo
// history and the rasterizer that turns a confirmed selection into an image.
package crop

import (
	"image"
	"math"
)

// Zoom limits accepted from the crop widget.
const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

// Point is a crop offset in source pixels, measured from the image center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is the crop widget state at one instant. Aspect is width/height,
// zero meaning free-form.
type Snapshot struct {
	Offset Point   `json:"offset"`
	Zoom   float64 `json:"zoom"`
	Aspect float64 `json:"aspect"`
}

// Baseline is the state the widget opens with.
func Baseline() Snapshot {
	return Snapshot{Zoom: MinZoom}
}

// Normalize clamps the zoom into range and rejects negative aspects.
func (s Snapshot) Normalize() Snapshot {
	if math.IsNaN(s.Zoom) || s.Zoom < MinZoom {
		s.Zoom = MinZoom
	}
	if s.Zoom > MaxZoom {
		s.Zoom = MaxZoom
	}
	if math.IsNaN(s.Aspect) || s.Aspect < 0 {
		s.Aspect = 0
	}
	return s
}

// AspectPreset is a named aspect ratio offered by the editor.
type AspectPreset struct {
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}

// AspectPresets lists the ratios offered by the editor, free-form first.
var AspectPresets = []AspectPreset{
	{Name: "Free", Ratio: 0},
	{Name: "1:1", Ratio: 1},
	{Name: "4:3", Ratio: 4.0 / 3.0},
	{Name: "3:4", Ratio: 3.0 / 4.0},
	{Name: "16:9", Ratio: 16.0 / 9.0},
	{Name: "9:16", Ratio: 9.0 / 16.0},
}

// frameSize returns the largest frame of the snapshot's aspect that fits the
// source, divided by zoom.
func frameSize(s Snapshot, size image.Point) (float64, float64) {
	w, h := float64(size.X), float64(size.Y)
	aspect := s.Aspect
	if aspect <= 0 {
		aspect = w / h
	}

	fw, fh := w, h
	if w/h > aspect {
		fw = h * aspect
	} else {
		fh = w / aspect
	}
	zoom := s.Normalize().Zoom
	return fw / zoom, fh / zoom
}

// RegionFor maps a widget snapshot onto a rectangle in source pixels. The frame
// is kept inside the source, so extreme offsets are clamped.
func RegionFor(s Snapshot, size image.Point) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 {
		return image.Rectangle{}
	}
	fw, fh := frameSize(s, size)
	cx := float64(size.X)/2 + s.Offset.X
	cy := float64(size.Y)/2 + s.Offset.Y

	x0 := clamp(cx-fw/2, 0, float64(size.X)-fw)
	y0 := clamp(cy-fh/2, 0, float64(size.Y)-fh)

	r := image.Rect(
		int(math.Round(x0)),
		int(math.Round(y0)),
		int(math.Round(x0+fw)),
		int(math.Round(y0+fh)),
	)
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(image.Rect(0, 0, size.X, size.Y))
}

// SnapshotFor is the inverse of RegionFor for a rectangle of the given aspect.
func SnapshotFor(r image.Rectangle, size image.Point, aspect float64) Snapshot {
	s := Snapshot{Aspect: aspect, Zoom: MinZoom}
	if r.Empty() || size.X <= 0 || size.Y <= 0 {
		return s
	}
	fw, _ := frameSize(s, size)
	s.Zoom = fw / float64(r.Dx())
	s.Offset = Point{
		X: float64(r.Min.X+r.Max.X)/2 - float64(size.X)/2,
		Y: float64(r.Min.Y+r.Max.Y)/2 - float64(size.Y)/2,
	}
	return s.Normalize()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
