package service

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenOnWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})

	flat := flattenOnWhite(src)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, flat.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, flat.NRGBAAt(1, 0))
}

func TestFlattenOnWhite_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	flat := flattenOnWhite(src)

	assert.Equal(t, image.Rect(0, 0, 4, 2), flat.Bounds())
	for i := 3; i < len(flat.Pix); i += 4 {
		assert.Equal(t, uint8(255), flat.Pix[i])
	}
}

func TestFitWidth(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		target        int
		want          image.Rectangle
	}{
		{name: "downscale", width: 1000, height: 500, target: 480, want: image.Rect(0, 0, 480, 240)},
		{name: "height rounds to nearest", width: 1000, height: 333, target: 480, want: image.Rect(0, 0, 480, 160)},
		{name: "height rounds down", width: 1000, height: 331, target: 768, want: image.Rect(0, 0, 768, 254)},
		{name: "equal width untouched", width: 480, height: 300, target: 480, want: image.Rect(0, 0, 480, 300)},
		{name: "narrower untouched", width: 300, height: 900, target: 768, want: image.Rect(0, 0, 300, 900)},
		{name: "extreme panorama keeps one row", width: 5000, height: 1, target: 480, want: image.Rect(0, 0, 480, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitWidth(imaging.New(tt.width, tt.height, color.White), tt.target)
			assert.Equal(t, tt.want, got.Bounds())
		})
	}
}

func TestDecodeOriginal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(40, 20, color.White), imaging.JPEG))

	img, err := decodeOriginal(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	_, err = decodeOriginal(strings.NewReader("plain text"))
	assert.Error(t, err)
}
