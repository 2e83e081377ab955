// Package raster converts PDF byte content into page images sized for
// transmission to a vision model.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

const (
	// DefaultPageCap bounds how many pages of an exam are inspected.
	DefaultPageCap = 5

	// maxDimension caps the longest side of a page image.
	maxDimension = 1024

	renderDPI   = 150
	jpegQuality = 85
)

// Rasterizer renders PDFs into downscaled JPEG page images.
type Rasterizer struct{}

// Pages renders up to pageCap pages of the given PDF, in page order, each
// downscaled so its longest side is at most 1024 px and re-encoded as
// JPEG. A pageCap of zero or less falls back to DefaultPageCap. An error
// means the bytes are not a readable PDF; callers treat that as a
// per-exam failure.
func (Rasterizer) Pages(data []byte, pageCap int) ([][]byte, error) {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > pageCap {
		n = pageCap
	}

	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, downscale(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

// downscale shrinks img so its longest side is at most maxDimension,
// preserving aspect ratio. Images already within bounds pass through.
func downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(longest)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
