package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampChannel(t *testing.T) {
	assert.Equal(t, uint8(255), clampChannel(255*1.1), "a saturated channel must not overflow")
	assert.Equal(t, uint8(255), clampChannel(255))
	assert.Equal(t, uint8(0), clampChannel(0))
	assert.Equal(t, uint8(110), clampChannel(100*1.1))
}

func TestEnhance_NeverExceedsChannelRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			// Exercise the clamp boundary: values at and near 255.
			img.Set(x, y, color.RGBA{R: uint8(240 + x), G: 255, B: uint8(x * 16), A: 255})
		}
	}

	enhance(img, 1.1, 4)

	for i := 0; i < len(img.Pix); i += 4 {
		assert.LessOrEqual(t, img.Pix[i], uint8(255))
		assert.Equal(t, uint8(255), img.Pix[i+1], "a 255 green channel stays clamped at 255")
		assert.Equal(t, uint8(255), img.Pix[i+3], "alpha must not be boosted")
	}
}

func TestEnhance_PreservesRowOrder(t *testing.T) {
	// Tag each row with a distinct red value; the parallel pass must keep
	// every value in its original row.
	img := image.NewRGBA(image.Rect(0, 0, 8, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y), A: 255})
		}
	}

	enhance(img, 1.1, 8)

	for y := 0; y < 32; y++ {
		want := clampChannel(float64(y) * 1.1)
		for x := 0; x < 8; x++ {
			got := img.Pix[y*img.Stride+x*4]
			assert.Equal(t, want, got, "row %d column %d", y, x)
		}
	}
}

func TestEnhance_EmptyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	assert.NotPanics(t, func() { enhance(img, 1.1, 2) })
}

func TestEnhance_MatchesSequentialResult(t *testing.T) {
	build := func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 33, 17))
		for i := range img.Pix {
			img.Pix[i] = uint8((i * 7) % 256)
		}
		return img
	}

	parallel := build()
	sequential := build()

	enhance(parallel, 1.1, 8)
	enhance(sequential, 1.1, 1)

	assert.Equal(t, sequential.Pix, parallel.Pix, "fan-out must not change the result")
}
