package crop

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionFor(t *testing.T) {
	size := image.Pt(200, 100)
	tests := []struct {
		name string
		snap Snapshot
		want image.Rectangle
	}{
		{"free at zoom 1 is the whole image", Snapshot{Zoom: 1}, image.Rect(0, 0, 200, 100)},
		{"square centered", Snapshot{Zoom: 1, Aspect: 1}, image.Rect(50, 0, 150, 100)},
		{"square zoom 2", Snapshot{Zoom: 2, Aspect: 1}, image.Rect(75, 25, 125, 75)},
		{"offset", Snapshot{Zoom: 2, Aspect: 1, Offset: Point{X: 20, Y: -10}}, image.Rect(95, 15, 145, 65)},
		{"offset clamped", Snapshot{Zoom: 1, Aspect: 1, Offset: Point{X: 1000}}, image.Rect(100, 0, 200, 100)},
		{"tall aspect", Snapshot{Zoom: 1, Aspect: 0.5}, image.Rect(75, 0, 125, 100)},
		{"zero zoom treated as 1", Snapshot{Aspect: 1}, image.Rect(50, 0, 150, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RegionFor(tt.snap, size))
		})
	}

	assert.True(t, RegionFor(Snapshot{Zoom: 1}, image.Point{}).Empty())
}

func TestSnapshotFor_InvertsRegionFor(t *testing.T) {
	size := image.Pt(200, 100)
	r := image.Rect(95, 15, 145, 65)

	s := SnapshotFor(r, size, 1)
	assert.Equal(t, 2.0, s.Zoom)
	assert.Equal(t, Point{X: 20, Y: -10}, s.Offset)
	assert.Equal(t, r, RegionFor(s, size))
}

func TestSnapshot_Normalize(t *testing.T) {
	assert.Equal(t, MinZoom, Snapshot{Zoom: 0.2}.Normalize().Zoom)
	assert.Equal(t, MaxZoom, Snapshot{Zoom: 7}.Normalize().Zoom)
	assert.Equal(t, 0.0, Snapshot{Zoom: 1, Aspect: -1}.Normalize().Aspect)
}
