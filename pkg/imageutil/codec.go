// Package imageutil decodes, encodes and converts the image payloads that move
// between the browser, the studio and the remote model.
package imageutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"golang.org/x/image/webp"
)

// MIME types understood by the studio.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

// JPEGQuality is used whenever a JPEG is re-encoded.
const JPEGQuality = 95

var (
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("image decode failed")
	// ErrUnsupportedType is returned for payloads that are not images.
	ErrUnsupportedType = errors.New("unsupported image type")
)

// DetectMIME sniffs the content type of data. An empty declared type, or a
// generic one, is replaced by the sniffed type.
func DetectMIME(data []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") {
		if declared == "image/jpg" {
			return MIMEJPEG
		}
		return declared
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// Decode decodes data with context awareness.
func Decode(ctx context.Context, data []byte, mimeType string) (image.Image, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var img image.Image
	var err error
	switch DetectMIME(data, mimeType) {
	case MIMEPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case MIMEJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case MIMEGIF:
		img, err = gif.Decode(bytes.NewReader(data))
	case MIMEWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return img, nil
}

// OutputMIME returns the type an image declared as mimeType is re-encoded to.
// Types without an encoder fall back to PNG.
func OutputMIME(mimeType string) string {
	switch mimeType {
	case MIMEPNG, MIMEJPEG, MIMEGIF:
		return mimeType
	default:
		return MIMEPNG
	}
}

// Encode encodes img as mimeType, falling back to PNG. It returns the type
// actually written.
func Encode(ctx context.Context, img image.Image, mimeType string) ([]byte, string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, "", err
	}

	out := OutputMIME(mimeType)
	var buf bytes.Buffer
	var err error
	switch out {
	case MIMEJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case MIMEGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encoding image: %w", err)
	}

	if err := checkContext(ctx); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), out, nil
}

// Normalize validates an uploaded payload and returns it as a record.Image.
// Encodings without an encoder are converted to PNG so later stages can write
// them back.
func Normalize(ctx context.Context, data []byte, declared string) (record.Image, image.Point, error) {
	mimeType := DetectMIME(data, declared)
	if !strings.HasPrefix(mimeType, "image/") {
		return record.Image{}, image.Point{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	img, err := Decode(ctx, data, mimeType)
	if err != nil {
		return record.Image{}, image.Point{}, err
	}
	size := img.Bounds().Size()
	if OutputMIME(mimeType) == mimeType {
		return record.Image{Data: data, MIMEType: mimeType}, size, nil
	}
	encoded, out, err := Encode(ctx, img, mimeType)
	if err != nil {
		return record.Image{}, image.Point{}, err
	}
	return record.Image{Data: encoded, MIMEType: out}, size, nil
}

// Size returns the pixel dimensions of an encoded image from its header.
func Size(img record.Image) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// Thumbnail scales img to fit inside maxDim x maxDim, keeping the aspect ratio.
// Images already small enough are returned unchanged.
func Thumbnail(ctx context.Context, src record.Image, maxDim int) (record.Image, error) {
	img, err := Decode(ctx, src.Data, src.MIMEType)
	if err != nil {
		return record.Image{}, err
	}
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return src, nil
	}
	thumb := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	data, out, err := Encode(ctx, thumb, src.MIMEType)
	if err != nil {
		return record.Image{}, err
	}
	return record.Image{Data: data, MIMEType: out}, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
