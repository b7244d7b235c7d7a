package mask

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"golang.org/x/image/vector"
)

// Mask values. Keep is the background, Erase marks pixels to regenerate.
const (
	Keep  uint8 = 0
	Erase uint8 = 255
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// overlayColor is the translucent on-screen brush color.
var overlayColor = color.NRGBA{R: 255, G: 64, B: 64, A: 128}

// Rasterize renders strokes onto a mask of the given size. Every pixel is Keep
// or Erase.
func Rasterize(strokes []Stroke, size image.Point) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	if size.X <= 0 || size.Y <= 0 {
		return m
	}

	z := vector.NewRasterizer(size.X, size.Y)
	white := image.NewUniform(color.Gray{Y: Erase})

	// Each primitive is drawn on its own so overlapping shapes of opposite
	// winding cannot cancel out.
	fill := func(path func(*vector.Rasterizer)) {
		z.Reset(size.X, size.Y)
		z.DrawOp = draw.Over
		path(z)
		z.Draw(m, m.Bounds(), white, image.Point{})
	}

	for _, s := range strokes {
		if len(s.Points) == 0 || s.Radius <= 0 {
			continue
		}
		r := float32(s.Radius)
		for i, p := range s.Points {
			fill(func(z *vector.Rasterizer) { circle(z, float32(p.X), float32(p.Y), r) })
			if i > 0 {
				q := s.Points[i-1]
				fill(func(z *vector.Rasterizer) { segment(z, q, p, r) })
			}
		}
	}

	threshold(m)
	return m
}

// Encode rasterizes strokes and encodes the mask as a PNG.
func Encode(strokes []Stroke, size image.Point) (record.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Rasterize(strokes, size)); err != nil {
		return record.Image{}, fmt.Errorf("encoding mask: %w", err)
	}
	return record.Image{Data: buf.Bytes(), MIMEType: imageutil.MIMEPNG}, nil
}

// Overlay draws strokes translucently over base for on-screen preview. The
// result is always a PNG.
func Overlay(ctx context.Context, base record.Image, strokes []Stroke) (record.Image, error) {
	img, err := imageutil.Decode(ctx, base.Data, base.MIMEType)
	if err != nil {
		return record.Image{}, err
	}
	dst := imaging.Clone(img)
	m := coverage(Rasterize(strokes, dst.Bounds().Size()))
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(overlayColor), image.Point{}, m, image.Point{}, draw.Over)

	data, mimeType, err := imageutil.Encode(ctx, dst, imageutil.MIMEPNG)
	if err != nil {
		return record.Image{}, err
	}
	return record.Image{Data: data, MIMEType: mimeType}, nil
}

// coverage reinterprets a mask as an alpha channel. Gray images are opaque
// everywhere, so draw.DrawMask cannot use them directly.
func coverage(m *image.Gray) *image.Alpha {
	return &image.Alpha{Pix: m.Pix, Stride: m.Stride, Rect: m.Rect}
}

func circle(z *vector.Rasterizer, cx, cy, r float32) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

// segment fills the rectangle swept by a brush of radius r from a to b. The
// round caps come from the circles drawn at each point.
func segment(z *vector.Rasterizer, a, b Point, r float32) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx := float32(-dy/length) * r
	ny := float32(dx/length) * r
	ax, ay := float32(a.X), float32(a.Y)
	bx, by := float32(b.X), float32(b.Y)

	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
}

func threshold(m *image.Gray) {
	for i, v := range m.Pix {
		if v >= 128 {
			m.Pix[i] = Erase
		} else {
			m.Pix[i] = Keep
		}
	}
}
