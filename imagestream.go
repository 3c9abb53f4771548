// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"bufio"
	"fmt"
	"io"
)

// An ImageStream reads the pixels of an image stream one at a time. Rows
// are padded to whole bytes.
type ImageStream struct {
	strm   Value
	width  int
	nComps int
	bits   int

	rc  io.ReadCloser
	br  *bufio.Reader
	row []byte
	pix []uint16
	x   int
}

// NewImageStream prepares to read strm as width pixels per row, nComps
// samples per pixel of bits each. Call Reset before reading.
func NewImageStream(strm Value, width, nComps, bits int) *ImageStream {
	return &ImageStream{
		strm:   strm,
		width:  width,
		nComps: nComps,
		bits:   bits,
		row:    make([]byte, (int64(width)*int64(nComps)*int64(bits)+7)/8),
		pix:    make([]uint16, width*nComps),
	}
}

// Reset (re)opens the decoded stream data at the first pixel.
func (s *ImageStream) Reset() error {
	s.Close()
	s.rc = s.strm.Reader()
	s.br = bufio.NewReader(s.rc)
	s.x = s.width
	return nil
}

// Close releases the underlying stream reader.
func (s *ImageStream) Close() error {
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc, s.br = nil, nil
	return err
}

// Pixel reads the next pixel's samples into buf, which must hold nComps
// values. Running out of data is an error.
func (s *ImageStream) Pixel(buf []uint16) error {
	if s.br == nil {
		return fmt.Errorf("image stream not reset")
	}
	if s.x >= s.width {
		if err := s.readRow(); err != nil {
			return err
		}
		s.x = 0
	}
	copy(buf[:s.nComps], s.pix[s.x*s.nComps:])
	s.x++
	return nil
}

func (s *ImageStream) readRow() error {
	if _, err := io.ReadFull(s.br, s.row); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("image data: %w", err)
	}
	switch s.bits {
	case 8:
		for i := range s.pix {
			s.pix[i] = uint16(s.row[i])
		}
	case 16:
		for i := range s.pix {
			s.pix[i] = uint16(s.row[2*i])<<8 | uint16(s.row[2*i+1])
		}
	default:
		mask := byte(1<<s.bits - 1)
		perByte := 8 / s.bits
		for i := range s.pix {
			shift := uint(8 - s.bits*(i%perByte+1))
			s.pix[i] = uint16(s.row[i/perByte] >> shift & mask)
		}
	}
	return nil
}
