package image

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	// Register the containers the transcoder sniffs for.
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds the longer side of the analysis image.
	// Vision backends neither need nor benefit from anything larger, and
	// downsampling sharply reduces payload size and cost.
	DefaultMaxDimension = 768

	// DefaultQuality is the JPEG quality for the analysis encoding. Low on
	// purpose: analysis accuracy tolerates compression artifacts, payload
	// size dominates cost.
	DefaultQuality = 10
)

// Options configures the analysis-path transcoding.
type Options struct {
	MaxDimension int
	Quality      int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	return o
}

// Transcoded is the transport-ready encoding of one input image.
type Transcoded struct {
	// Data is the JPEG-encoded, size-bounded image.
	Data []byte
	// OriginalBytes is the length of the raw input, kept for
	// size-reduction observability.
	OriginalBytes int
	// Width and Height are the dimensions after bounding.
	Width  int
	Height int
}

// Transcoder prepares raw image bytes for a vision backend: sniff the
// container, decode, bound the dimensions, re-encode compactly.
//
// All methods are synchronous and CPU-bound; callers dispatch them off the
// request path (see usecase/analyze).
type Transcoder struct {
	opts  Options
	thumb ThumbnailOptions
}

// NewTranscoder constructs a transcoder. Zero-valued options fall back to
// defaults.
func NewTranscoder(opts Options, thumb ThumbnailOptions) *Transcoder {
	return &Transcoder{
		opts:  opts.withDefaults(),
		thumb: thumb.withDefaults(),
	}
}

// Transcode converts raw bytes into a transport-ready JPEG bounded to
// MaxDimension on the longer side.
func (t *Transcoder) Transcode(raw []byte) (*Transcoded, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}

	bounded := scaleToFit(img, t.opts.MaxDimension, xdraw.CatmullRom)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, bounded, &jpeg.Options{Quality: t.opts.Quality}); err != nil {
		return nil, &Error{Kind: ErrEncode, OriginalBytes: len(raw), Err: err}
	}

	size := bounded.Bounds().Size()
	return &Transcoded{
		Data:          buf.Bytes(),
		OriginalBytes: len(raw),
		Width:         size.X,
		Height:        size.Y,
	}, nil
}

// decode sniffs the container and parses the pixel data, distinguishing
// "no known container" from "recognized but corrupt".
func decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		kind := ErrDecode
		if errors.Is(err, image.ErrFormat) {
			kind = ErrUnrecognized
		}
		return nil, &Error{Kind: kind, OriginalBytes: len(raw), Err: err}
	}
	return img, nil
}

// scaleToFit returns img scaled so that max(width, height) <= maxDim,
// preserving aspect ratio. Images already within the bound pass through
// as an RGBA copy without resampling.
func scaleToFit(img image.Image, maxDim int, scaler xdraw.Scaler) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longest := w
	if h > longest {
		longest = h
	}

	if longest <= maxDim {
		return toRGBA(img)
	}

	ratio := float64(maxDim) / float64(longest)
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	scaler.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// toRGBA converts any decoded image to the canonical RGBA pixel layout.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Copy(dst, image.Point{}, img, bounds, xdraw.Src, nil)
	return dst
}
