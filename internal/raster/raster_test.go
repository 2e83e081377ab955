package raster

import (
	"image"
	"testing"
)

func TestPagesRejectsNonPDF(t *testing.T) {
	_, err := Rasterizer{}.Pages([]byte("this is not a pdf"), DefaultPageCap)
	if err == nil {
		t.Fatal("expected an error for non-PDF bytes")
	}
}

func TestPagesRejectsEmptyInput(t *testing.T) {
	_, err := Rasterizer{}.Pages(nil, DefaultPageCap)
	if err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"within bounds untouched", 800, 600, 800, 600},
		{"exactly at bound untouched", 1024, 512, 1024, 512},
		{"wide image scaled", 2048, 1024, 1024, 512},
		{"tall image scaled", 1000, 4096, 250, 1024},
		{"square oversize", 3000, 3000, 1024, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := downscale(src).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("downscale(%dx%d) = %dx%d, want %dx%d",
					tt.w, tt.h, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDownscaleKeepsLongestSideBounded(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 5000, 3210))
	b := downscale(src).Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest != maxDimension {
		t.Errorf("longest side = %d, want %d", longest, maxDimension)
	}
}
