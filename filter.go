// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"bufio"
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/ccitt"
	tifflzw "golang.org/x/image/tiff/lzw"

	"github.com/sassoftware/viya-pdf-view/logger"
)

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}

// Reader returns the data contained in the stream v with the stream's
// filter chain applied.
// If v.Kind() != Stream, or a filter cannot be set up, Reader returns a
// ReadCloser that responds to all reads with that error.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(stream)
	if !ok {
		return &errorReadCloser{fmt.Errorf("stream not present")}
	}
	var rd io.Reader
	if x.src != nil {
		rd = io.NewSectionReader(x.src, x.offset, v.Key("Length").Int64())
	} else {
		rd = bytes.NewReader(x.data)
	}

	filter := v.Key("Filter")
	param := v.Key("DecodeParms")
	var err error
	switch filter.Kind() {
	default:
		err = fmt.Errorf("unsupported filter %v", filter)
	case Null:
		// ok
	case Name:
		if param.Kind() == Array {
			param = param.Index(0)
		}
		rd, err = applyFilter(rd, filter.Name(), param)
	case Array:
		for i := 0; i < filter.Len() && err == nil; i++ {
			rd, err = applyFilter(rd, filter.Index(i).Name(), param.Index(i))
		}
	}
	if err != nil {
		logger.Error("stream filter setup failed", "ref", v.ptr.String(), "err", err)
		return &errorReadCloser{err}
	}
	return io.NopCloser(rd)
}

func applyFilter(rd io.Reader, name string, param Value) (io.Reader, error) {
	switch name {
	default:
		return nil, fmt.Errorf("unknown filter %s", name)
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		logger.Debug("filter: FlateDecode (decoder initialized)", true)
		return applyPredictor(zr, param)
	case "LZWDecode", "LZW":
		var lr io.Reader
		early := param.Key("EarlyChange")
		if early.Kind() == Integer && early.Int64() == 0 {
			lr = lzw.NewReader(rd, lzw.MSB, 8)
		} else {
			// the TIFF variant widens codes one entry early, as PDF does by default
			lr = tifflzw.NewReader(rd, tifflzw.MSB, 8)
		}
		return applyPredictor(lr, param)
	case "ASCII85Decode", "A85":
		return ascii85.NewDecoder(newAlphaReader(rd)), nil
	case "ASCIIHexDecode", "AHx":
		return newHexReader(rd), nil
	case "RunLengthDecode", "RL":
		return newRunLengthReader(rd), nil
	case "CCITTFaxDecode", "CCF":
		return newCCITTReader(rd, param)
	case "DCTDecode", "DCT":
		return newDCTReader(rd)
	}
}

func applyPredictor(rd io.Reader, param Value) (io.Reader, error) {
	pred := param.Key("Predictor")
	if pred.Kind() == Null || pred.Int64() == 1 {
		return rd, nil
	}
	colors := intDefault(param.Key("Colors"), 1)
	bpc := intDefault(param.Key("BitsPerComponent"), 8)
	columns := intDefault(param.Key("Columns"), 1)
	if colors < 1 || bpc < 1 || columns < 1 || colors > 32 || columns > 1<<24 {
		return nil, fmt.Errorf("invalid predictor parameters colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8

	switch p := pred.Int64(); {
	case p == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("unsupported TIFF predictor with %d bits per component", bpc)
		}
		return &tiffPredictReader{r: rd, bpp: bpp, row: make([]byte, rowLen)}, nil
	case p >= 10 && p <= 15:
		return &pngPredictReader{
			r:    rd,
			bpp:  bpp,
			prev: make([]byte, rowLen),
			tmp:  make([]byte, 1+rowLen),
		}, nil
	default:
		return nil, fmt.Errorf("unknown predictor %d", p)
	}
}

func intDefault(v Value, def int) int {
	if v.Kind() != Integer {
		return def
	}
	return int(v.Int64())
}

// pngPredictReader undoes PNG row filtering; every row carries its own
// filter type byte.
type pngPredictReader struct {
	r    io.Reader
	bpp  int
	prev []byte
	tmp  []byte
	pend []byte
}

func (r *pngPredictReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.tmp)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return n, err
		}
		cur := r.tmp[1:]
		switch r.tmp[0] {
		case 0:
		case 1:
			for i := r.bpp; i < len(cur); i++ {
				cur[i] += cur[i-r.bpp]
			}
		case 2:
			for i := range cur {
				cur[i] += r.prev[i]
			}
		case 3:
			for i := range cur {
				var left int
				if i >= r.bpp {
					left = int(cur[i-r.bpp])
				}
				cur[i] += byte((left + int(r.prev[i])) / 2)
			}
		case 4:
			for i := range cur {
				var a, c int
				if i >= r.bpp {
					a, c = int(cur[i-r.bpp]), int(r.prev[i-r.bpp])
				}
				cur[i] += paeth(a, int(r.prev[i]), c)
			}
		default:
			return n, fmt.Errorf("malformed PNG predictor row type %d", r.tmp[0])
		}
		copy(r.prev, cur)
		r.pend = r.prev
	}
	return n, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	switch {
	case pa <= pb && pa <= pc:
		return byte(a)
	case pb <= pc:
		return byte(b)
	}
	return byte(c)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiffPredictReader undoes TIFF predictor 2 for 8-bit components.
type tiffPredictReader struct {
	r    io.Reader
	bpp  int
	row  []byte
	pend []byte
}

func (r *tiffPredictReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.row)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return n, err
		}
		for i := r.bpp; i < len(r.row); i++ {
			r.row[i] += r.row[i-r.bpp]
		}
		r.pend = r.row
	}
	return n, nil
}

// alphaReader passes through ASCII85 digits, 'z' and white space, zeroes
// every other byte, and stops at the "~>" end-of-data marker.
type alphaReader struct {
	r    io.Reader
	done bool
}

func newAlphaReader(r io.Reader) *alphaReader {
	return &alphaReader{r: r}
}

func (a *alphaReader) Read(p []byte) (int, error) {
	if a.done {
		return 0, io.EOF
	}
	n, err := a.r.Read(p)
	for i := 0; i < n; i++ {
		c := p[i]
		switch {
		case a.done:
			p[i] = 0
		case c == '~':
			a.done = true
			p[i] = 0
		case '!' <= c && c <= 'u', c == 'z', isSpace(c):
		default:
			p[i] = 0
		}
	}
	if a.done && err == io.EOF {
		err = nil
	}
	return n, err
}

// hexReader decodes ASCIIHexDecode data up to the '>' marker.
type hexReader struct {
	r    *bufio.Reader
	done bool
}

func newHexReader(r io.Reader) *hexReader {
	return &hexReader{r: bufio.NewReader(r)}
}

func (h *hexReader) nextDigit() (byte, bool, error) {
	for {
		c, err := h.r.ReadByte()
		if err != nil {
			return 0, false, err
		}
		if isSpace(c) {
			continue
		}
		if c == '>' {
			return 0, false, nil
		}
		return c, true, nil
	}
}

func (h *hexReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && !h.done {
		c1, ok, err := h.nextDigit()
		if err == io.EOF || (err == nil && !ok) {
			h.done = true
			break
		}
		if err != nil {
			return n, err
		}
		c2, ok, err := h.nextDigit()
		if err != nil && err != io.EOF {
			return n, err
		}
		if !ok {
			h.done = true
			c2 = '0'
		}
		var out [1]byte
		if _, err := hex.Decode(out[:], []byte{c1, c2}); err != nil {
			return n, fmt.Errorf("ASCIIHexDecode: %w", err)
		}
		p[n] = out[0]
		n++
	}
	if n == 0 && h.done {
		return 0, io.EOF
	}
	return n, nil
}

// runLengthReader decodes RunLengthDecode data.
type runLengthReader struct {
	r    *bufio.Reader
	pend []byte
	buf  [128]byte
	done bool
}

func newRunLengthReader(rd io.Reader) io.Reader {
	return &runLengthReader{r: bufio.NewReader(rd)}
}

func (r *runLengthReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.pend) == 0 {
			if r.done {
				break
			}
			if err := r.fill(); err != nil {
				return n, err
			}
			continue
		}
		m := copy(p[n:], r.pend)
		n += m
		r.pend = r.pend[m:]
	}
	if n == 0 && r.done {
		return 0, io.EOF
	}
	return n, nil
}

func (r *runLengthReader) fill() error {
	length, err := r.r.ReadByte()
	if err == io.EOF || length == 128 {
		r.done = true
		return nil
	}
	if err != nil {
		return err
	}
	if length < 128 {
		cnt := int(length) + 1
		if _, err := io.ReadFull(r.r, r.buf[:cnt]); err != nil {
			return fmt.Errorf("RunLengthDecode: %w", err)
		}
		r.pend = r.buf[:cnt]
		return nil
	}
	c, err := r.r.ReadByte()
	if err != nil {
		return fmt.Errorf("RunLengthDecode: %w", err)
	}
	cnt := 257 - int(length)
	for i := 0; i < cnt; i++ {
		r.buf[i] = c
	}
	r.pend = r.buf[:cnt]
	return nil
}

func newCCITTReader(rd io.Reader, param Value) (io.Reader, error) {
	k := param.Key("K").Int64()
	columns := intDefault(param.Key("Columns"), 1728)
	rows := intDefault(param.Key("Rows"), 0)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}
	var sf ccitt.SubFormat
	switch {
	case k < 0:
		sf = ccitt.Group4
	case k == 0:
		sf = ccitt.Group3
	default:
		return nil, fmt.Errorf("CCITTFaxDecode: mixed 1-D/2-D coding (K=%d) not supported", k)
	}
	opts := &ccitt.Options{
		Align:  param.Key("EncodedByteAlign").Bool(),
		Invert: param.Key("BlackIs1").Bool(),
	}
	return ccitt.NewReader(rd, ccitt.MSB, sf, columns, rows, opts), nil
}

// newDCTReader decodes a JPEG and returns its samples in component order.
func newDCTReader(rd io.Reader) (io.Reader, error) {
	img, err := jpeg.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("DCTDecode: %w", err)
	}
	b := img.Bounds()
	switch m := img.(type) {
	case *image.Gray:
		out := make([]byte, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := m.PixOffset(b.Min.X, y)
			out = append(out, m.Pix[i:i+b.Dx()]...)
		}
		return bytes.NewReader(out), nil
	case *image.CMYK:
		out := make([]byte, 0, 4*b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := m.PixOffset(b.Min.X, y)
			out = append(out, m.Pix[i:i+4*b.Dx()]...)
		}
		return bytes.NewReader(out), nil
	}
	out := make([]byte, 0, 3*b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return bytes.NewReader(out), nil
}
