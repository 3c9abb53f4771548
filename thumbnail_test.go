// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayThumb(w, h int64, data []byte) Value {
	return NewStream(map[string]Value{
		"Width":            NewInt(w),
		"Height":           NewInt(h),
		"BitsPerComponent": NewInt(8),
		"ColorSpace":       NewName("DeviceGray"),
	}, data)
}

func TestDecodeThumbnail_Gray(t *testing.T) {
	tbl := NewObjectTable()
	ref := tbl.Add(grayThumb(2, 2, []byte{0, 128, 255, 64}))

	th, err := DecodeThumbnail(tbl, ref)
	require.NoError(t, err)
	require.NotNil(t, th)
	assert.Equal(t, 2, th.Width)
	assert.Equal(t, 2, th.Height)
	assert.Equal(t, 6, th.Stride)
	assert.Equal(t, []byte{0, 0, 0, 128, 128, 128, 255, 255, 255, 64, 64, 64}, th.Pix)
}

func TestDecodeThumbnail_Absent(t *testing.T) {
	tbl := NewObjectTable()

	th, err := DecodeThumbnail(tbl, Value{})
	assert.NoError(t, err)
	assert.Nil(t, th)

	th, err = DecodeThumbnail(tbl, NewRef(40, 0))
	assert.NoError(t, err, "a dangling reference is treated as no thumbnail")
	assert.Nil(t, th)
}

func TestDecodeThumbnail_Abbreviations(t *testing.T) {
	strm := NewStream(map[string]Value{
		"W":   NewInt(3),
		"H":   NewInt(1),
		"BPC": NewInt(8),
		"CS":  NewName("G"),
		"D":   NewArray(NewInt(1), NewInt(0)),
	}, []byte{0, 128, 64})

	th, err := DecodeThumbnail(nil, strm)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 127, 127, 127, 191, 191, 191}, th.Pix)
}

func TestDecodeThumbnail_Color(t *testing.T) {
	tests := []struct {
		name string
		cs   Value
		bits int64
		data []byte
		want []byte
	}{
		{"rgb", NewName("DeviceRGB"), 8, []byte{255, 0, 0, 0, 0, 255}, []byte{255, 0, 0, 0, 0, 255}},
		{"cmyk", NewName("DeviceCMYK"), 8, []byte{0, 255, 255, 0, 0, 0, 0, 255}, []byte{255, 0, 0, 0, 0, 0}},
		{"1 bit gray", NewName("DeviceGray"), 1, []byte{0b01000000}, []byte{0, 0, 0, 255, 255, 255}},
		{
			"indexed",
			NewArray(NewName("Indexed"), NewName("DeviceRGB"), NewInt(1), NewString("\x10\x20\x30\x40\x50\x60")),
			8,
			[]byte{1, 0},
			[]byte{0x40, 0x50, 0x60, 0x10, 0x20, 0x30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strm := NewStream(map[string]Value{
				"Width":            NewInt(2),
				"Height":           NewInt(1),
				"BitsPerComponent": NewInt(tt.bits),
				"ColorSpace":       tt.cs,
			}, tt.data)
			th, err := DecodeThumbnail(nil, strm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, th.Pix)
		})
	}
}

func TestDecodeThumbnail_Errors(t *testing.T) {
	base := func(overrides map[string]Value) Value {
		hdr := map[string]Value{
			"Width":            NewInt(2),
			"Height":           NewInt(2),
			"BitsPerComponent": NewInt(8),
			"ColorSpace":       NewName("DeviceGray"),
		}
		for k, v := range overrides {
			hdr[k] = v
		}
		return NewStream(hdr, []byte{0, 1, 2, 3})
	}

	tests := []struct {
		name  string
		thumb Value
		want  error
	}{
		{"not a stream", NewDict(map[string]Value{"Width": NewInt(2)}), ErrThumbnailData},
		{"missing height", base(map[string]Value{"Height": Value{}}), ErrNoThumbnailDims},
		{"missing bits", base(map[string]Value{"BitsPerComponent": Value{}}), ErrNoThumbnailDims},
		{"real width", base(map[string]Value{"Width": NewReal(2)}), ErrNoThumbnailDims},
		{"zero width", base(map[string]Value{"Width": NewInt(0)}), ErrNoThumbnailDims},
		{"negative height", base(map[string]Value{"Height": NewInt(-2)}), ErrNoThumbnailDims},
		{"huge", base(map[string]Value{"Width": NewInt(100000), "Height": NewInt(100000)}), ErrThumbnailTooLarge},
		{"huge sample rows", base(map[string]Value{
			"Width":            NewInt(200000000),
			"Height":           NewInt(1),
			"BitsPerComponent": NewInt(16),
			"ColorSpace":       NewName("DeviceCMYK"),
		}), ErrThumbnailTooLarge},
		{"missing color space", base(map[string]Value{"ColorSpace": Value{}}), ErrColorSpace},
		{"unsupported color space", base(map[string]Value{"ColorSpace": NewName("Pattern")}), ErrColorSpace},
		{"bad bits", base(map[string]Value{"BitsPerComponent": NewInt(3)}), ErrColorMap},
		{"huge bits", base(map[string]Value{"BitsPerComponent": NewInt(1 << 40)}), ErrColorMap},
		{"bad decode", base(map[string]Value{"Decode": NewArray(NewInt(0))}), ErrColorMap},
		{"truncated data", base(map[string]Value{"Height": NewInt(3)}), ErrThumbnailData},
		{"broken filter", base(map[string]Value{"Filter": NewName("FlateDecode")}), ErrThumbnailData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := DecodeThumbnail(nil, tt.thumb)
			assert.Nil(t, th)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrThumbnailDecode)
		})
	}
}

func TestDecodeThumbnail_MaxBytes(t *testing.T) {
	strm := grayThumb(2, 2, []byte{0, 1, 2, 3})

	_, err := DecodeThumbnail(nil, strm, WithMaxBytes(11))
	assert.True(t, errors.Is(err, ErrThumbnailTooLarge))

	th, err := DecodeThumbnail(nil, strm, WithMaxBytes(12))
	require.NoError(t, err)
	assert.Len(t, th.Pix, 12)

	th, err = DecodeThumbnail(nil, strm, WithMaxBytes(0))
	require.NoError(t, err, "non-positive limits keep the default")
	assert.Len(t, th.Pix, 12)

	// 16-bit RGB needs 12 bytes per pixel of row buffers, more than the output
	rgb16 := NewStream(map[string]Value{
		"Width":            NewInt(2),
		"Height":           NewInt(2),
		"BitsPerComponent": NewInt(16),
		"ColorSpace":       NewName("DeviceRGB"),
	}, make([]byte, 24))
	_, err = DecodeThumbnail(nil, rgb16, WithMaxBytes(23))
	assert.ErrorIs(t, err, ErrThumbnailTooLarge)
	th, err = DecodeThumbnail(nil, rgb16, WithMaxBytes(24))
	require.NoError(t, err)
	assert.Len(t, th.Pix, 12)
}

func TestPage_LoadThumbnail(t *testing.T) {
	tbl := NewObjectTable()
	tbl.Set(Ref{8, 0}, grayThumb(1, 1, []byte{200}))
	p := NewPage(tbl, 1, NewDict(map[string]Value{"Thumb": NewRef(8, 0)}), nil)

	th, err := p.LoadThumbnail()
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 200, 200}, th.Pix)

	p = NewPage(tbl, 2, NewDict(nil), nil)
	th, err = p.LoadThumbnail()
	assert.NoError(t, err)
	assert.Nil(t, th)
}

func TestThumbnail_Images(t *testing.T) {
	th, err := DecodeThumbnail(nil, grayThumb(2, 2, []byte{0, 128, 255, 64}))
	require.NoError(t, err)

	img := th.Image()
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, []uint8{128, 128, 128, 255}, img.Pix[4:8])
	assert.Equal(t, []uint8{64, 64, 64, 255}, img.Pix[img.Stride+4:img.Stride+8])

	var buf bytes.Buffer
	require.NoError(t, th.WritePNG(&buf))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	r, g, b, a := decoded.At(0, 1).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})

	flat, err := DecodeThumbnail(nil, grayThumb(2, 2, []byte{90, 90, 90, 90}))
	require.NoError(t, err)
	scaled := flat.Scale(5, 3)
	assert.Equal(t, 5, scaled.Bounds().Dx())
	assert.Equal(t, 3, scaled.Bounds().Dy())
	assert.InDelta(t, 90, int(scaled.Pix[scaled.PixOffset(2, 1)]), 1)
}
