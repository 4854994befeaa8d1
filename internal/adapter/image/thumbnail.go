package image

import (
	"bytes"
	"image"
	"image/jpeg"
	"runtime"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultThumbnailSize bounds both thumbnail dimensions.
	DefaultThumbnailSize = 300

	// DefaultThumbnailQuality keeps thumbnails presentable; unlike the
	// analysis encoding they are meant for human eyes.
	DefaultThumbnailQuality = 85

	// DefaultBrightness is the uniform per-channel boost applied to
	// thumbnails.
	DefaultBrightness = 1.1
)

// ThumbnailOptions configures the best-effort thumbnail side path.
type ThumbnailOptions struct {
	Size       int
	Quality    int
	Brightness float64
	// Parallelism caps the row fan-out of the brightness pass.
	// Defaults to GOMAXPROCS.
	Parallelism int
}

func (o ThumbnailOptions) withDefaults() ThumbnailOptions {
	if o.Size <= 0 {
		o.Size = DefaultThumbnailSize
	}
	if o.Quality <= 0 {
		o.Quality = DefaultThumbnailQuality
	}
	if o.Brightness <= 0 {
		o.Brightness = DefaultBrightness
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	return o
}

// Thumbnail resizes the original image to fit the thumbnail bound with a
// fast filter, brightens it, and encodes it at high quality. The caller
// treats failures as best-effort: a bad thumbnail never fails the request.
func (t *Transcoder) Thumbnail(raw []byte) ([]byte, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}

	small := scaleToFit(img, t.thumb.Size, xdraw.ApproxBiLinear)
	enhance(small, t.thumb.Brightness, t.thumb.Parallelism)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: t.thumb.Quality}); err != nil {
		return nil, &Error{Kind: ErrEncode, OriginalBytes: len(raw), Err: err}
	}
	return buf.Bytes(), nil
}

// enhance multiplies each color channel by factor, clamped to 255, in
// place. The work is pure and independent per pixel, so rows fan out
// across a bounded group; each goroutine writes only its own rows, which
// keeps output pixel order identical to input order.
func enhance(img *image.RGBA, factor float64, parallelism int) {
	bounds := img.Bounds()
	height := bounds.Dy()
	if height == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(parallelism)

	rowLen := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+rowLen]
		g.Go(func() error {
			for x := 0; x < len(row); x += 4 {
				row[x] = clampChannel(float64(row[x]) * factor)
				row[x+1] = clampChannel(float64(row[x+1]) * factor)
				row[x+2] = clampChannel(float64(row[x+2]) * factor)
				// Alpha stays untouched.
			}
			return nil
		})
	}

	// Workers never return errors; Wait is just the join point.
	_ = g.Wait()
}

// clampChannel rounds a boosted channel value into [0, 255].
func clampChannel(v float64) uint8 {
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}
