package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/crop"
	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
)

func main() {
	in := flag.String("in", "", "source image")
	out := flag.String("out", "cropped", "output path without extension")
	aspect := flag.Float64("aspect", 1, "crop aspect (width/height), 0 for free-form")
	zoom := flag.Float64("zoom", 0, "explicit zoom; 0 asks for a suggestion")
	offsetX := flag.Float64("dx", 0, "explicit horizontal offset from center, in source pixels")
	offsetY := flag.Float64("dy", 0, "explicit vertical offset from center, in source pixels")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: debug_crop -in photo.jpg [-aspect 1.5] [-zoom 2 -dx 10 -dy -20]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	src, size, err := imageutil.Normalize(ctx, data, "")
	if err != nil {
		panic(err)
	}
	fmt.Printf("Input: %dx%d (%s)\n", size.X, size.Y, src.MIMEType)

	var snap crop.Snapshot
	var region image.Rectangle
	if *zoom > 0 {
		snap = crop.Snapshot{Offset: crop.Point{X: *offsetX, Y: *offsetY}, Zoom: *zoom, Aspect: *aspect}.Normalize()
		region = crop.RegionFor(snap, size)
	} else {
		start := time.Now()
		snap, region, err = crop.Suggest(ctx, src, *aspect)
		if err != nil {
			fmt.Printf("SUGGEST ERROR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Suggested in %v\n", time.Since(start))
	}
	fmt.Printf("Snapshot: offset=(%.1f,%.1f) zoom=%.3f aspect=%.3f\n", snap.Offset.X, snap.Offset.Y, snap.Zoom, snap.Aspect)
	fmt.Printf("Region: %v (%dx%d)\n", region, region.Dx(), region.Dy())

	res, err := crop.Rasterize(ctx, src, region)
	if err != nil {
		fmt.Printf("CROP ERROR: %v\n", err)
		os.Exit(1)
	}
	got, err := imageutil.Size(res)
	if err != nil {
		panic(err)
	}
	if got != region.Size() {
		fmt.Printf("FAILED: output %dx%d does not match region\n", got.X, got.Y)
		os.Exit(1)
	}

	path := *out + extensionFor(res.MIMEType)
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		panic(err)
	}
	fmt.Printf("CROP SUCCESS. Wrote %s (%dx%d)\n", path, got.X, got.Y)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case imageutil.MIMEJPEG:
		return ".jpg"
	case imageutil.MIMEGIF:
		return ".gif"
	default:
		return ".png"
	}
}
