// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/sassoftware/viya-pdf-view/logger"
	"golang.org/x/image/draw"
)

// ErrThumbnailDecode is wrapped by every thumbnail decode failure.
var ErrThumbnailDecode = errors.New("thumbnail decode failed")

var (
	ErrNoThumbnailDims   = fmt.Errorf("%w: missing or invalid dimensions", ErrThumbnailDecode)
	ErrThumbnailTooLarge = fmt.Errorf("%w: image too large", ErrThumbnailDecode)
	ErrColorSpace        = fmt.Errorf("%w: bad color space", ErrThumbnailDecode)
	ErrColorMap          = fmt.Errorf("%w: bad color map", ErrThumbnailDecode)
	ErrThumbnailData     = fmt.Errorf("%w: bad image data", ErrThumbnailDecode)
)

// A Thumbnail is a decoded page preview: packed 8-bit RGB samples, row
// major, top row first.
type Thumbnail struct {
	Width  int
	Height int
	Stride int // bytes per row, Width*3
	Pix    []byte
}

// Image returns the thumbnail as an opaque RGBA image.
func (t *Thumbnail) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		src := t.Pix[y*t.Stride : y*t.Stride+t.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+t.Width*4]
		for x := 0; x < t.Width; x++ {
			dst[4*x] = src[3*x]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x+2]
			dst[4*x+3] = 0xff
		}
	}
	return img
}

// Scale resamples the thumbnail to w by h pixels.
func (t *Thumbnail) Scale(w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), t.Image(), image.Rect(0, 0, t.Width, t.Height), draw.Src, nil)
	return dst
}

// WritePNG encodes the thumbnail as PNG.
func (t *Thumbnail) WritePNG(w io.Writer) error {
	return png.Encode(w, t.Image())
}

type thumbnailOptions struct {
	maxBytes int64
}

// A ThumbnailOption configures DecodeThumbnail.
type ThumbnailOption func(*thumbnailOptions)

// WithMaxBytes bounds the size of the decoded RGB buffer, and separately
// that of the per-row sample buffers. Values <= 0 keep the default of
// math.MaxInt32; values above math.MaxInt are lowered to it.
func WithMaxBytes(n int64) ThumbnailOption {
	return func(o *thumbnailOptions) {
		if n > math.MaxInt {
			n = math.MaxInt
		}
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// LoadThumbnail decodes the page's /Thumb image. A page without one
// yields (nil, nil).
func (p *Page) LoadThumbnail(opts ...ThumbnailOption) (*Thumbnail, error) {
	return DecodeThumbnail(p.xref, p.thumb.raw, opts...)
}

// DecodeThumbnail decodes the thumbnail image thumb, which may be a stream
// or a reference to one. A null thumb, or a reference to nothing, is not an
// error: it yields (nil, nil). Failures wrap ErrThumbnailDecode.
func DecodeThumbnail(xref XRef, thumb Value, opts ...ThumbnailOption) (*Thumbnail, error) {
	o := thumbnailOptions{maxBytes: math.MaxInt32}
	for _, opt := range opts {
		opt(&o)
	}

	strm := thumb.Fetch(xref)
	if strm.IsNull() {
		return nil, nil
	}
	t, err := decodeThumbnail(strm, o)
	if err != nil {
		logger.Debug(fmt.Sprintf("thumbnail %v: %v", thumb.Ptr(), err), "ref", thumb.Ptr().String(), true)
		return nil, err
	}
	return t, nil
}

func decodeThumbnail(strm Value, o thumbnailOptions) (*Thumbnail, error) {
	if strm.Kind() != Stream {
		return nil, fmt.Errorf("%w: thumbnail is %s, not a stream", ErrThumbnailData, strm.Kind())
	}
	width, ok1 := intEntry(strm, "Width", "W")
	height, ok2 := intEntry(strm, "Height", "H")
	bits, ok3 := intEntry(strm, "BitsPerComponent", "BPC")
	if !ok1 || !ok2 || !ok3 {
		return nil, ErrNoThumbnailDims
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoThumbnailDims, width, height)
	}
	if width > o.maxBytes/3/height {
		return nil, fmt.Errorf("%w: %dx%d", ErrThumbnailTooLarge, width, height)
	}

	cs, err := ParseColorSpace(entry(strm, "ColorSpace", "CS"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrColorSpace, err)
	}
	if bits > math.MaxInt32 {
		return nil, fmt.Errorf("%w: bits per component %d", ErrColorMap, bits)
	}
	cmap, err := NewImageColorMap(int(bits), entry(strm, "Decode", "D"), cs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrColorMap, err)
	}
	// each sample costs its packed bytes in the row buffer plus a uint16
	perPixel := int64(cmap.NComps()) * int64(2+(cmap.Bits()+7)/8)
	if width > o.maxBytes/perPixel {
		return nil, fmt.Errorf("%w: %d pixels at %d row bytes each", ErrThumbnailTooLarge, width, perPixel)
	}

	w, h := int(width), int(height)
	is := NewImageStream(strm, w, cmap.NComps(), cmap.Bits())
	defer is.Close()
	if err := is.Reset(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailData, err)
	}

	t := &Thumbnail{Width: w, Height: h, Stride: w * 3, Pix: make([]byte, w*h*3)}
	pix := make([]uint16, cmap.NComps())
	p := t.Pix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if err := is.Pixel(pix); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrThumbnailData, err)
			}
			r, g, b := cmap.RGB(pix)
			p[0], p[1], p[2] = quantize(r), quantize(g), quantize(b)
			p = p[3:]
		}
	}
	return t, nil
}

// entry returns the first present of key and its abbreviation.
func entry(v Value, key, abbr string) Value {
	if e := v.Key(key); !e.IsNull() {
		return e
	}
	return v.Key(abbr)
}

func intEntry(v Value, key, abbr string) (int64, bool) {
	e := entry(v, key, abbr)
	if e.Kind() != Integer {
		return 0, false
	}
	return e.Int64(), true
}

func quantize(c float64) byte {
	return byte(math.Floor(c*255 + 0.5))
}
