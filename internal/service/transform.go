package service

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"

	// Registers the WebP decoder with image.Decode so .webp originals can be resized.
	_ "golang.org/x/image/webp"
)

// decodeOriginal decodes a JPEG, PNG or WebP source. EXIF orientation is applied when
// present; a missing or unreadable orientation tag leaves the image as stored.
func decodeOriginal(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// flattenOnWhite composites img over an opaque white canvas. The result has no
// transparency left, so every pixel's alpha is 255.
func flattenOnWhite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(canvas, imaging.Clone(img), image.Pt(0, 0), 1.0)
}

// fitWidth downsizes img to width, keeping the aspect ratio with the height rounded
// to the nearest pixel. Images no wider than width are returned unchanged.
func fitWidth(img *image.NRGBA, width int) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Dx() <= width {
		return img
	}

	height := int(math.Round(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx())))
	if height < 1 {
		height = 1
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
