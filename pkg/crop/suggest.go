package crop

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/muesli/smartcrop"
)

// resizer implements the smartcrop resizer on top of imaging.
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}

// Suggest proposes a content-aware crop of the given aspect. A zero aspect uses
// the source's own aspect ratio.
func Suggest(ctx context.Context, src record.Image, aspect float64) (Snapshot, image.Rectangle, error) {
	img, err := imageutil.Decode(ctx, src.Data, src.MIMEType)
	if err != nil {
		return Snapshot{}, image.Rectangle{}, fmt.Errorf("decoding crop source: %w", err)
	}
	size := img.Bounds().Size()
	requested := aspect
	if aspect <= 0 {
		aspect = float64(size.X) / float64(size.Y)
	}

	// smartcrop wants integer proportions.
	w, h := 1000, int(math.Round(1000/aspect))
	if aspect < 1 {
		w, h = int(math.Round(1000*aspect)), 1000
	}

	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: imaging.Lanczos})

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)

	go func() {
		best, err := analyzer.FindBestCrop(img, w, h)
		resultChan <- cropResult{crop: best, err: err}
	}()

	select {
	case <-ctx.Done():
		return Snapshot{}, image.Rectangle{}, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return Snapshot{}, image.Rectangle{}, fmt.Errorf("finding best crop: %w", result.err)
		}
		r := result.crop.Sub(img.Bounds().Min).Intersect(image.Rect(0, 0, size.X, size.Y))
		s := SnapshotFor(r, size, requested)
		return s, RegionFor(s, size), nil
	}
}
