// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sassoftware/viya-pdf-view/logger"
)

// A Reader is a single PDF file open for reading. It implements XRef.
type Reader struct {
	f          io.ReaderAt
	end        int64
	xref       []xref
	trailer    dict
	trailerptr Ref
}

type xref struct {
	ptr      Ref
	inStream bool
	stream   Ref
	offset   int64
}

var objHeaderRE = regexp.MustCompile(`^\d+\s+\d+\s+obj\b`)

// Open opens the named file for reading. The caller closes the returned file.
func Open(file string) (*os.File, *Reader, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	logger.Debug(fmt.Sprintf("open %s: %d bytes", file, fi.Size()), true)
	reader, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, reader, nil
}

// NewReader reads a document of the given size from f.
func NewReader(f io.ReaderAt, size int64) (r *Reader, err error) {
	defer recoverSyntax(&err)

	if err := CheckHeader(f); err != nil {
		return nil, err
	}
	if err := ValidateEOFMarker(f, size); err != nil {
		return nil, err
	}
	startxref, err := FindStartXref(f, size)
	if err != nil {
		return nil, err
	}

	r = &Reader{f: f, end: size}
	b := r.bufferAt(startxref)
	table, trailerptr, trailer, err := readXref(r, b)
	if err != nil {
		return nil, err
	}
	r.xref = table
	r.trailer = trailer
	r.trailerptr = trailerptr
	logger.Debug(fmt.Sprintf("xref: %d entries", len(table)), true)
	return r, nil
}

func (r *Reader) bufferAt(off int64) *buffer {
	b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
	b.src = r.f
	return b
}

// CheckHeader requires a "%PDF-x.y" header in the first kilobyte, with a
// version of 1.0 through 1.7 or 2.0.
func CheckHeader(f io.ReaderAt) error {
	buf := make([]byte, 1024)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read error: %w", err)
	}
	if n == 0 {
		return errors.New("not a PDF file: empty")
	}
	buf = buf[:n]
	// garbage or a BOM may precede the header
	p := bytes.Index(buf, []byte("%PDF-"))
	if p < 0 {
		return errors.New("not a PDF file: missing %PDF- header")
	}
	line := buf[p:]
	if lineEnd := bytes.IndexAny(line, "\r\n"); lineEnd >= 0 {
		line = line[:lineEnd]
	}
	line = bytes.TrimRight(line, " \t\x00")

	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return errors.New("not a PDF file: malformed version")
	}
	if !((major == 1 && minor >= 0 && minor <= 7) || (major == 2 && minor == 0)) {
		return fmt.Errorf("unsupported PDF version %d.%d", major, minor)
	}
	logger.Debug(fmt.Sprintf("PDF version %d.%d", major, minor), true)
	return nil
}

// ValidateEOFMarker looks for "%%EOF" in the file's last chunk.
func ValidateEOFMarker(f io.ReaderAt, size int64) error {
	const endChunk = 100
	off := size - endChunk
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	n, err := f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read error: %w", err)
	}
	buf = bytes.TrimRight(buf[:n], "\r\n\t \x00")
	if !bytes.HasSuffix(buf, []byte("%%EOF")) {
		return errors.New("not a PDF file: missing %%EOF")
	}
	return nil
}

// FindStartXref returns the offset recorded after the last "startxref"
// keyword, which is where the newest cross-reference section starts.
func FindStartXref(f io.ReaderAt, size int64) (startxref int64, err error) {
	defer recoverSyntax(&err)

	const endChunk = 100
	off := size - endChunk
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	n, err := f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("read error: %w", err)
	}
	buf = buf[:n]
	i := findLastLine(buf, "startxref")
	if i < 0 {
		return 0, errors.New("malformed PDF file: missing final startxref")
	}
	pos := off + int64(i)
	b := newBuffer(io.NewSectionReader(f, pos, size-pos), pos)
	b.allowEOF = true

	if tok := b.readToken(); tok != keyword("startxref") {
		return 0, fmt.Errorf("malformed PDF file: missing startxref: %v", tok)
	}
	startxref, ok := b.readToken().(int64)
	if !ok || startxref < 0 || startxref >= size {
		return 0, errors.New("malformed PDF file: startxref not followed by a valid offset")
	}
	logger.Debug(fmt.Sprintf("startxref at %d", startxref), true)
	return startxref, nil
}

// Trailer is the merged trailer dictionary.
func (r *Reader) Trailer() Value {
	return Value{r, r.trailerptr, r.trailer}
}

// Catalog returns the document catalog (the trailer's /Root).
func (r *Reader) Catalog() Value {
	return r.Trailer().Key("Root")
}

// NumPage returns the number of pages declared by the page tree root.
func (r *Reader) NumPage() int {
	return int(r.Catalog().Key("Pages").Key("Count").Int64())
}

// Page returns the page with the given 1-based number.
func (r *Reader) Page(num int) (*Page, error) {
	return LoadPage(r, r.Catalog().Key("Pages"), num)
}

func readXref(r *Reader, b *buffer) ([]xref, Ref, dict, error) {
	tok := b.readToken()
	if tok == keyword("xref") {
		logger.Debug("xref section: table", true)
		return readXrefTable(r, b)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		logger.Debug("xref section: stream", true)
		return readXrefStream(r, b)
	}
	return nil, Ref{}, nil, fmt.Errorf("malformed PDF: cross-reference table nor stream found: %v", objfmt(tok))
}

func readXrefStream(r *Reader, b *buffer) ([]xref, Ref, dict, error) {
	strmptr, strm, err := parseXrefStreamObject(b)
	if err != nil {
		return nil, Ref{}, nil, err
	}
	size, err := xrefSize(strm)
	if err != nil {
		return nil, Ref{}, nil, err
	}
	table := make([]xref, size)
	table, err = readXrefStreamData(r, strm, table, size)
	if err != nil {
		return nil, Ref{}, nil, fmt.Errorf("malformed PDF: %w", err)
	}
	table, err = mergePrevXrefStreams(r, strm, table, size)
	if err != nil {
		return nil, Ref{}, nil, err
	}
	return table, strmptr, strm.hdr, nil
}

// parseXrefStreamObject reads one object from b and returns its reference
// and stream, ensuring it is an /XRef stream.
func parseXrefStreamObject(b *buffer) (Ref, stream, error) {
	obj := b.readObject()
	od, ok := obj.(objdef)
	if !ok {
		return Ref{}, stream{}, fmt.Errorf("malformed PDF: objdef not found: %v", objfmt(obj))
	}
	strm, ok := od.obj.(stream)
	if !ok {
		return Ref{}, stream{}, fmt.Errorf("malformed PDF: cross-reference stream not found: %v", objfmt(od))
	}
	if strm.hdr["Type"] != name("XRef") {
		return Ref{}, stream{}, errors.New("malformed PDF: xref stream does not have type XRef")
	}
	return od.ptr, strm, nil
}

// xrefSize returns the /Size from an xref stream header.
func xrefSize(strm stream) (int64, error) {
	if size, ok := strm.hdr["Size"].(int64); ok && size >= 0 {
		return size, nil
	}
	return 0, errors.New("malformed PDF: xref stream missing Size")
}

// mergePrevXrefStreams walks the /Prev chain, validating and merging each
// older stream into table.
func mergePrevXrefStreams(r *Reader, cur stream, table []xref, maxSize int64) ([]xref, error) {
	seen := map[int64]bool{}
	for prevoff := cur.hdr["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, fmt.Errorf("malformed PDF: xref Prev is not integer: %v", objfmt(prevoff))
		}
		if seen[off] || off < 0 || off >= r.end {
			return nil, fmt.Errorf("malformed PDF: bad xref Prev offset %d", off)
		}
		seen[off] = true
		logger.Debug(fmt.Sprintf("found Prev stream with offset %d", off), true)

		_, prevStrm, err := parseXrefStreamObject(r.bufferAt(off))
		if err != nil {
			return nil, err
		}
		prevoff = prevStrm.hdr["Prev"]
		psize, _ := prevStrm.hdr["Size"].(int64)
		if psize > maxSize {
			return nil, errors.New("malformed PDF: xref prev stream larger than last stream")
		}
		table, err = readXrefStreamData(r, prevStrm, table, psize)
		if err != nil {
			return nil, fmt.Errorf("malformed PDF: reading xref prev stream: %w", err)
		}
	}
	return table, nil
}

func readXrefStreamData(r *Reader, strm stream, table []xref, size int64) ([]xref, error) {
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid Index array %v", objfmt(index))
	}

	ww, ok := strm.hdr["W"].(array)
	if !ok {
		return nil, errors.New("xref stream missing W array")
	}
	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || i < 0 || i > 8 {
			return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
	}

	v := Value{r, Ref{}, strm}
	buf := make([]byte, w[0]+w[1]+w[2])
	data := v.Reader()
	defer data.Close()
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 {
			return nil, fmt.Errorf("malformed Index pair %v %v", objfmt(index[0]), objfmt(index[1]))
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			if _, err := io.ReadFull(data, buf); err != nil {
				return nil, fmt.Errorf("error reading xref stream: %w", err)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : w[0]+w[1]+w[2]])
			x := int(start) + i
			table = ensureLen(table, x+1)
			if table[x].ptr != (Ref{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xref{ptr: Ref{0, 65535}}
			case 1:
				table[x] = xref{ptr: Ref{uint32(x), uint16(v3)}, offset: int64(v2)}
			case 2:
				table[x] = xref{ptr: Ref{uint32(x), 0}, inStream: true, stream: Ref{uint32(v2), 0}, offset: int64(v3)}
			default:
				logger.Debug(fmt.Sprintf("invalid xref stream type %d: %x", v1, buf))
			}
		}
	}
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

func readXrefTable(r *Reader, b *buffer) ([]xref, Ref, dict, error) {
	table, trailer, err := parseXrefTableAndTrailer(b, nil)
	if err != nil {
		return nil, Ref{}, nil, err
	}

	// entries from a hybrid file's /XRefStm are merged before the Prev chain
	table, trailer, err = r.handleTrailerXRefStm(table, trailer)
	if err != nil {
		logger.Warn("XRefStm handling failed, falling back to Prev chain", "err", err)
	}

	table, trailer, err = resolvePrevXrefTables(r, trailer, table)
	if err != nil {
		return nil, Ref{}, nil, err
	}
	if err := validateTrailerSize(&table, trailer); err != nil {
		return nil, Ref{}, nil, err
	}
	return table, Ref{}, trailer, nil
}

// parseXrefTableAndTrailer reads one classic xref section into table,
// then its trailer.
func parseXrefTableAndTrailer(b *buffer, table []xref) ([]xref, dict, error) {
	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed PDF: %w", err)
	}
	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, nil, errors.New("malformed PDF: xref table not followed by trailer dictionary")
	}
	return table, trailer, nil
}

// resolvePrevXrefTables merges the tables along trailer's /Prev chain into
// table. Entries already in table win. The newest trailer is returned.
func resolvePrevXrefTables(r *Reader, trailer dict, table []xref) ([]xref, dict, error) {
	seen := map[int64]bool{}
	prev := trailer
	for prevoff := trailer[name("Prev")]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, nil, fmt.Errorf("malformed PDF: xref Prev is not integer: %v", objfmt(prevoff))
		}
		if seen[off] || off < 0 || off >= r.end {
			return nil, nil, fmt.Errorf("malformed PDF: bad xref Prev offset %d", off)
		}
		seen[off] = true
		b := r.bufferAt(off)
		if tok := b.readToken(); tok != keyword("xref") {
			return nil, nil, errors.New("malformed PDF: xref Prev does not point to xref")
		}
		var err error
		table, prev, err = parseXrefTableAndTrailer(b, table)
		if err != nil {
			return nil, nil, err
		}
		table, prev, err = r.handleTrailerXRefStm(table, prev)
		if err != nil {
			logger.Debug(fmt.Sprintf("XRefStm handling error in Prev chain: %v; continuing", err))
		}
		prevoff = prev[name("Prev")]
	}
	return table, trailer, nil
}

// validateTrailerSize cuts table down to the trailer's /Size.
func validateTrailerSize(table *[]xref, trailer dict) error {
	size, ok := trailer[name("Size")].(int64)
	if !ok {
		return errors.New("malformed PDF: trailer missing /Size entry")
	}
	if size < int64(len(*table)) {
		*table = (*table)[:size]
	}
	return nil
}

// ensureLen extends s to length n, reallocating when cap is short.
func ensureLen[T any](s []T, n int) []T {
	if n <= len(s) {
		return s
	}
	if cap(s) < n {
		ns := make([]T, n)
		copy(ns, s)
		return ns
	}
	return s[:n]
}

// setIfEmpty stores val at x unless an earlier section filled the slot.
func setIfEmpty(table *[]xref, x int, val xref) {
	if x < 0 {
		return
	}
	*table = ensureLen(*table, x+1)
	if (*table)[x].ptr == (Ref{}) {
		(*table)[x] = val
	}
}

func readXrefTableData(b *buffer, table []xref) ([]xref, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			return nil, errors.New("malformed xref table subsection header")
		}
		for i := 0; i < int(count); i++ {
			off, okOff := b.readToken().(int64)
			gen, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, fmt.Errorf("malformed xref entry at subsection starting %d", start)
			}
			idx := int(start) + i
			switch alloc {
			case keyword("n"):
				setIfEmpty(&table, idx, xref{ptr: Ref{uint32(idx), uint16(gen)}, offset: off})
			case keyword("f"):
				table = ensureLen(table, idx+1)
			default:
				return nil, fmt.Errorf("malformed xref table: unexpected alloc token %v", alloc)
			}
		}
	}
	return table, nil
}

// mergeXrefTables merges src into dest:
//   - dest grows when src is longer
//   - empty dest slots take the src entry
//   - when both are in use, src wins
func mergeXrefTables(dest []xref, src []xref) []xref {
	dest = ensureLen(dest, len(src))
	for i, s := range src {
		if s.ptr == (Ref{}) {
			continue
		}
		d := dest[i]
		if d.ptr == (Ref{}) {
			dest[i] = s
			continue
		}
		if d.ptr.Gen != 65535 && s.ptr.Gen != 65535 {
			dest[i] = s
		}
	}
	return dest
}

// isLikelyObjectAt reports whether an object header or dictionary begins at off.
func (r *Reader) isLikelyObjectAt(off int64) bool {
	if off < 0 || off >= r.end {
		return false
	}
	buf := make([]byte, 64)
	n, err := r.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return false
	}
	s := strings.TrimLeft(string(buf[:n]), " \t\r\n")
	return objHeaderRE.MatchString(s) || strings.HasPrefix(s, "<<") || strings.HasPrefix(s, "%PDF-")
}

// scanForObjectAt searches a window around approx for "<num> <gen> obj"
// and returns the found offset or -1.
func (r *Reader) scanForObjectAt(num uint32, gen uint16, approx int64, window int64) int64 {
	start := approx - window
	if start < 0 {
		start = 0
	}
	end := approx + window
	if end > r.end {
		end = r.end
	}
	if end <= start {
		return -1
	}
	buf := make([]byte, end-start)
	n, err := r.f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return -1
	}
	re := regexp.MustCompile(fmt.Sprintf(`\b%d\s+%d\s+obj\b`, num, gen))
	loc := re.FindIndex(buf[:n])
	if loc == nil {
		return -1
	}
	return start + int64(loc[0])
}

// validateAndRepairXrefEntries checks offsets in table and tries to repair
// them with a small-window scan. It returns the number of repaired entries
// and of entries that could not be repaired.
func (r *Reader) validateAndRepairXrefEntries(table []xref) (repaired int, invalid int) {
	for i, ent := range table {
		if ent.ptr == (Ref{}) || ent.inStream || ent.offset == 0 {
			continue
		}
		if r.isLikelyObjectAt(ent.offset) {
			continue
		}
		if found := r.scanForObjectAt(ent.ptr.Num, ent.ptr.Gen, ent.offset, 1024); found >= 0 {
			table[i].offset = found
			repaired++
			continue
		}
		invalid++
	}
	return repaired, invalid
}

// handleTrailerXRefStm merges the stream named by a trailer's /XRefStm into
// table. A stream with too many unrepairable entries is rejected.
func (r *Reader) handleTrailerXRefStm(table []xref, trailer dict) ([]xref, dict, error) {
	xrefstm := trailer[name("XRefStm")]
	if xrefstm == nil {
		return table, trailer, nil
	}
	off, ok := xrefstm.(int64)
	if !ok || off < 0 || off >= r.end {
		return table, trailer, fmt.Errorf("malformed PDF: XRefStm not a valid offset: %v", objfmt(xrefstm))
	}
	srcTable, _, hdr, err := readXrefStream(r, r.bufferAt(off))
	if err != nil {
		return table, trailer, fmt.Errorf("failed to parse XRefStm at %d: %w", off, err)
	}
	repaired, invalid := r.validateAndRepairXrefEntries(srcTable)
	total := 0
	for _, e := range srcTable {
		if e.ptr != (Ref{}) {
			total++
		}
	}
	logger.Debug(fmt.Sprintf("XRefStm at %d: %d entries, %d repaired, %d invalid", off, total, repaired, invalid), true)
	if total > 0 && float64(invalid)/float64(total) > 0.30 {
		return table, trailer, fmt.Errorf("xref stream at %d appears invalid: %d/%d invalid entries", off, invalid, total)
	}
	table = mergeXrefTables(table, srcTable)
	if _, ok := hdr["Size"]; !ok {
		return table, trailer, fmt.Errorf("xref stream at %d missing /Size", off)
	}
	return table, trailer, nil
}

// findLastLine returns the index of the last s in buf that ends its line,
// or -1.
//
// Producers often put spaces, tabs or NULs between the keyword and the
// newline, so any PDF white space is skipped as long as the run ends in
// CR or LF:
//
//	startxref\n
//	startxref␠␠\t\r\n
//	startxref\0\0\n
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	for i := len(buf); i > 0; {
		j := bytes.LastIndex(buf[:i], bs)
		if j < 0 {
			break
		}
		end := SkipWhitespace(buf, j+len(bs))
		if EndsWithEOL(buf, j+len(bs), end) {
			return j
		}
		i = j
	}
	return -1
}

// SkipWhitespace advances j past all PDF white space in buf.
func SkipWhitespace(buf []byte, j int) int {
	for j < len(buf) && isSpace(buf[j]) {
		j++
	}
	return j
}

// EndsWithEOL reports whether buf[start:end] is non-empty and ends in CR or LF.
func EndsWithEOL(buf []byte, start, end int) bool {
	if end > start {
		last := buf[end-1]
		return last == '\n' || last == '\r'
	}
	return false
}

// Fetch implements XRef. Unknown, free or unreadable objects are null.
func (r *Reader) Fetch(ref Ref) Value {
	obj, err := r.fetch(ref, 0)
	if err != nil {
		logger.Error("fetch failed", "ref", ref.String(), "err", err)
		return Value{}
	}
	return Value{r, ref, obj}
}

func (r *Reader) fetch(ptr Ref, depth int) (x object, err error) {
	defer recoverSyntax(&err)

	if ptr.Num >= uint32(len(r.xref)) {
		return nil, nil
	}
	xr := r.xref[ptr.Num]
	if xr.ptr != ptr || !xr.inStream && xr.offset == 0 {
		return nil, nil
	}
	if xr.inStream {
		return r.fetchFromObjStm(ptr, xr.stream, depth)
	}

	def, ok := r.bufferAt(xr.offset).readObject().(objdef)
	if !ok {
		return nil, fmt.Errorf("loading %v: no object definition at offset %d", ptr, xr.offset)
	}
	if def.ptr != ptr {
		return nil, fmt.Errorf("loading %v: found %v", ptr, def.ptr)
	}
	return def.obj, nil
}

func (r *Reader) fetchFromObjStm(ptr, strmRef Ref, depth int) (object, error) {
	if depth >= maxRefDepth {
		return nil, fmt.Errorf("loading %v: object stream nesting too deep", ptr)
	}
	obj, err := r.fetch(strmRef, depth+1)
	if err != nil {
		return nil, err
	}
	strm := Value{r, strmRef, obj}
	for hops := 0; hops < maxRefDepth; hops++ {
		if strm.Kind() != Stream {
			return nil, fmt.Errorf("loading %v: object stream %v is not a stream", ptr, strmRef)
		}
		if strm.Key("Type").Name() != "ObjStm" {
			return nil, fmt.Errorf("loading %v: %v is not an object stream", ptr, strmRef)
		}
		n := int(strm.Key("N").Int64())
		first := strm.Key("First").Int64()
		if first <= 0 {
			return nil, fmt.Errorf("loading %v: object stream missing First", ptr)
		}
		rd := strm.Reader()
		b := newBuffer(rd, 0)
		b.allowEOF = true
		b.allowStream = false
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ptr.Num {
				b.seekForward(first + off)
				b.allowObjptr = true
				x := b.readObject()
				rd.Close()
				return x, nil
			}
		}
		rd.Close()
		strm = strm.Key("Extends")
	}
	return nil, fmt.Errorf("loading %v: not found in object stream", ptr)
}
