package testhelpers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// Pattern selects the visual content generated by the image helpers. Two
// images generated with the same pattern at different sizes look alike.
type Pattern int

const (
	HorizontalGradient Pattern = iota
	VerticalGradient
	Checkerboard
)

// Bitmap generates an image of the requested size filled with the pattern.
func Bitmap(width, height int, pattern Pattern) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint8
			switch pattern {
			case HorizontalGradient:
				v = uint8(x * 255 / max(width-1, 1))
			case VerticalGradient:
				v = uint8(y * 255 / max(height-1, 1))
			case Checkerboard:
				if ((x*8)/max(width, 1)+(y*8)/max(height, 1))%2 == 0 {
					v = 255
				}
			}
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
		}
	}

	return img
}

// PNG encodes a generated bitmap as PNG bytes.
func PNG(t *testing.T, width, height int, pattern Pattern) []byte {
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, Bitmap(width, height, pattern)))
	return buf.Bytes()
}

// JPEG encodes a generated bitmap as JPEG bytes.
func JPEG(t *testing.T, width, height int, pattern Pattern) []byte {
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, Bitmap(width, height, pattern), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// Dimensions decodes the header of the encoded image provided.
func Dimensions(t *testing.T, data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}
