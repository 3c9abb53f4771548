// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readPixels reads n pixels of nComps samples each.
func readPixels(t *testing.T, s *ImageStream, n, nComps int) [][]uint16 {
	t.Helper()
	var out [][]uint16
	for i := 0; i < n; i++ {
		buf := make([]uint16, nComps)
		require.NoError(t, s.Pixel(buf), "pixel %d", i)
		out = append(out, buf)
	}
	return out
}

func TestImageStream_Unpacking(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		width  int
		nComps int
		bits   int
		want   [][]uint16
	}{
		{
			name:   "1 bit rows padded to a byte",
			data:   []byte{0b10100000, 0b01111111},
			width:  3,
			nComps: 1,
			bits:   1,
			want:   [][]uint16{{1}, {0}, {1}, {0}, {1}, {1}},
		},
		{
			name:   "2 bit",
			data:   []byte{0b11100100},
			width:  2,
			nComps: 2,
			bits:   2,
			want:   [][]uint16{{3, 2}, {1, 0}},
		},
		{
			name:   "4 bit",
			data:   []byte{0xa5, 0xf0},
			width:  3,
			nComps: 1,
			bits:   4,
			want:   [][]uint16{{0xa}, {0x5}, {0xf}},
		},
		{
			name:   "8 bit rgb",
			data:   []byte{1, 2, 3, 4, 5, 6},
			width:  2,
			nComps: 3,
			bits:   8,
			want:   [][]uint16{{1, 2, 3}, {4, 5, 6}},
		},
		{
			name:   "16 bit",
			data:   []byte{0x12, 0x34, 0x00, 0x01, 0xff, 0xff},
			width:  1,
			nComps: 3,
			bits:   16,
			want:   [][]uint16{{0x1234, 1, 0xffff}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewImageStream(NewStream(nil, tt.data), tt.width, tt.nComps, tt.bits)
			require.NoError(t, s.Reset())
			defer s.Close()
			assert.Equal(t, tt.want, readPixels(t, s, len(tt.want), tt.nComps))
		})
	}
}

func TestImageStream_NotReset(t *testing.T) {
	s := NewImageStream(NewStream(nil, []byte{1}), 1, 1, 8)
	err := s.Pixel(make([]uint16, 1))
	assert.ErrorContains(t, err, "not reset")
	assert.NoError(t, s.Close())
}

func TestImageStream_ShortData(t *testing.T) {
	for _, data := range [][]byte{nil, {1}, {1, 2, 3}} {
		s := NewImageStream(NewStream(nil, data), 2, 1, 8)
		require.NoError(t, s.Reset())
		buf := make([]uint16, 1)
		var err error
		for i := 0; i < 4 && err == nil; i++ {
			err = s.Pixel(buf)
		}
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "%d bytes", len(data))
		s.Close()
	}
}

func TestImageStream_ResetRestarts(t *testing.T) {
	s := NewImageStream(NewStream(nil, []byte{7, 8}), 2, 1, 8)
	require.NoError(t, s.Reset())
	assert.Equal(t, [][]uint16{{7}, {8}}, readPixels(t, s, 2, 1))

	require.NoError(t, s.Reset())
	assert.Equal(t, [][]uint16{{7}}, readPixels(t, s, 1, 1))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestImageStream_FilteredData(t *testing.T) {
	strm := NewStream(map[string]Value{"Filter": NewName("AHx")}, []byte("0a0b>"))
	s := NewImageStream(strm, 2, 1, 8)
	require.NoError(t, s.Reset())
	defer s.Close()
	assert.Equal(t, [][]uint16{{10}, {11}}, readPixels(t, s, 2, 1))
}
