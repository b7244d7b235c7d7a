package crop

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
)

// ErrInvalidRegion is returned for empty regions or regions outside the source.
var ErrInvalidRegion = errors.New("invalid crop region")

// Rasterize copies region out of src into a new image of exactly the region's
// size, encoded like src. Region is in source pixels with the origin at the
// top-left corner.
func Rasterize(ctx context.Context, src record.Image, region image.Rectangle) (record.Image, error) {
	if region.Empty() {
		return record.Image{}, fmt.Errorf("%w: %v is empty", ErrInvalidRegion, region)
	}

	img, err := imageutil.Decode(ctx, src.Data, src.MIMEType)
	if err != nil {
		return record.Image{}, fmt.Errorf("decoding crop source: %w", err)
	}

	b := img.Bounds()
	if !region.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
		return record.Image{}, fmt.Errorf("%w: %v outside %dx%d", ErrInvalidRegion, region, b.Dx(), b.Dy())
	}

	cropped := imaging.Crop(img, region.Add(b.Min))

	data, mimeType, err := imageutil.Encode(ctx, cropped, imageutil.DetectMIME(src.Data, src.MIMEType))
	if err != nil {
		return record.Image{}, fmt.Errorf("encoding crop: %w", err)
	}
	return record.Image{Data: data, MIMEType: mimeType}, nil
}
