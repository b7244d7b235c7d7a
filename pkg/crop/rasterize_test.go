package crop

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientPNG returns a PNG whose pixel (x, y) has red x and green y.
func gradientPNG(t *testing.T, w, h int) record.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return record.Image{Data: buf.Bytes(), MIMEType: imageutil.MIMEPNG}
}

func solidJPEG(t *testing.T, w, h int) record.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{200, 30, 30, 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return record.Image{Data: buf.Bytes(), MIMEType: imageutil.MIMEJPEG}
}

func TestRasterize_CopiesRegionVerbatim(t *testing.T) {
	src := gradientPNG(t, 20, 10)

	out, err := Rasterize(context.Background(), src, image.Rect(5, 2, 15, 8))
	require.NoError(t, err)
	assert.Equal(t, imageutil.MIMEPNG, out.MIMEType)

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			assert.Equal(t, color.NRGBA{R: uint8(x + 5), G: uint8(y + 2), B: 7, A: 255}, c)
		}
	}
}

func TestRasterize_KeepsJPEGEncoding(t *testing.T) {
	out, err := Rasterize(context.Background(), solidJPEG(t, 32, 32), image.Rect(0, 0, 16, 8))
	require.NoError(t, err)
	assert.Equal(t, imageutil.MIMEJPEG, out.MIMEType)

	size, err := imageutil.Size(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 8), size)
}

func TestRasterize_Errors(t *testing.T) {
	ctx := context.Background()
	src := gradientPNG(t, 20, 10)

	tests := []struct {
		name    string
		src     record.Image
		region  image.Rectangle
		wantErr error
	}{
		{"empty region", src, image.Rect(3, 3, 3, 8), ErrInvalidRegion},
		{"outside bounds", src, image.Rect(10, 0, 25, 5), ErrInvalidRegion},
		{"negative origin", src, image.Rect(-1, 0, 5, 5), ErrInvalidRegion},
		{"undecodable source", record.Image{Data: []byte("nope"), MIMEType: imageutil.MIMEPNG}, image.Rect(0, 0, 1, 1), imageutil.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rasterize(ctx, tt.src, tt.region)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSuggest(t *testing.T) {
	src := gradientPNG(t, 240, 160)

	snap, region, err := Suggest(context.Background(), src, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, snap.Aspect)
	assert.True(t, region.In(image.Rect(0, 0, 240, 160)))
	assert.InDelta(t, region.Dx(), region.Dy(), 1)
	assert.Equal(t, region, RegionFor(snap, image.Pt(240, 160)))
}
