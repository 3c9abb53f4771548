// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package pdfview implements the page-level part of a PDF viewer:
// resolving a page's inherited attributes, computing the device-space
// geometry of a (possibly sliced and rotated) render request, sequencing
// the content interpreter, annotations and links against an output
// device, and decoding a page's embedded thumbnail image into RGB pixels.
//
// # Values
//
// A PDF is a graph of Values, each of which has one of the following Kinds:
//
//	Null, for the null object.
//	Bool, for a boolean value.
//	Integer, for an integer.
//	Real, for a floating-point number.
//	String, for a string constant.
//	Name, for a name constant (as in /Helvetica).
//	Dict, for a dictionary of name-value pairs.
//	Array, for an array of values.
//	Stream, for an opaque data stream and associated header dictionary.
//	Reference, for an indirect reference that has not been followed.
//
// The accessors on Value (Int64, Float64, Name, Key, Index and so on) return
// a zero result when the Value has a different Kind. Key and Index follow
// indirect references through the XRef the Value was read from; KeyNF and
// IndexNF return the entry as it was written, which may be a Reference.
//
// Documents come either from a file (Open, NewReader) or from an in-memory
// ObjectTable; both implement XRef.
package pdfview

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// maxRefDepth bounds how many references are followed to reach a direct
// object, so that reference cycles terminate.
const maxRefDepth = 32

// A Ref identifies an indirect object by object number and generation.
type Ref struct {
	Num uint32
	Gen uint16
}

func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

// An XRef resolves indirect references to the objects they name.
// Fetch returns a null Value when the reference cannot be resolved.
type XRef interface {
	Fetch(ref Ref) Value
}

type object interface{}

type name string

type dict map[name]object

type array []object

type stream struct {
	hdr    dict
	ptr    Ref
	src    io.ReaderAt // nil for in-memory streams
	offset int64
	data   []byte
}

type objdef struct {
	ptr Ref
	obj object
}

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() = true).
type Value struct {
	r    XRef
	ptr  Ref
	data object
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
	Reference
)

var kindNames = [...]string{
	Null:      "null",
	Bool:      "boolean",
	Integer:   "integer",
	Real:      "real",
	String:    "string",
	Name:      "name",
	Dict:      "dictionary",
	Array:     "array",
	Stream:    "stream",
	Reference: "reference",
}

func (k ValueKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsNull reports whether the value is a null. It is equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	case Ref:
		return Reference
	}
}

// IsNumber reports whether v is an Integer or a Real.
func (v Value) IsNumber() bool {
	k := v.Kind()
	return k == Integer || k == Real
}

// Ptr returns the indirect object v was fetched through, or the zero Ref
// for direct objects.
func (v Value) Ptr() Ref {
	return v.ptr
}

// XRef returns the table v resolves references against. It may be nil.
func (v Value) XRef() XRef {
	return v.r
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String.
// To access such values, see RawString and Text.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x interface{}) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case name:
		return "/" + string(x)
	case dict:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()
	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()
	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)
	case Ref:
		return x.String()
	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.Num, x.ptr.Gen, objfmt(x.obj))
	}
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Integer, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// Float64 returns v's float64 value, converting from integer if necessary.
// If v is not a number, Float64 returns 0.
func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, _ := v.data.(string)
	return x
}

// Text returns v's string value interpreted as a “text string” and
// converted to UTF-8. Strings that start with a UTF-16BE or UTF-8 byte
// order mark are decoded accordingly; anything else is PDFDocEncoding.
// If v.Kind() != String, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	switch {
	case len(x) >= 2 && x[0] == 0xfe && x[1] == 0xff:
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if s, err := dec.String(x); err == nil {
			return s
		}
		return utf16Fallback(x[2:])
	case len(x) >= 3 && x[0] == 0xef && x[1] == 0xbb && x[2] == 0xbf:
		if s, err := unicode.UTF8BOM.NewDecoder().String(x); err == nil {
			return s
		}
		return x[3:]
	}
	return pdfDocDecode(x)
}

// utf16Fallback decodes big-endian UTF-16 code units, dropping a trailing odd byte.
func utf16Fallback(s string) string {
	u := make([]uint16, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		u = append(u, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return string(utf16.Decode(u))
}

// Name returns v's name value.
// If v.Kind() != Name, Name returns the empty string.
// The returned name does not include the leading slash.
func (v Value) Name() string {
	x, _ := v.data.(name)
	return string(x)
}

func (v Value) dictData() (dict, bool) {
	switch x := v.data.(type) {
	case dict:
		return x, true
	case stream:
		return x.hdr, true
	}
	return nil, false
}

// Key returns the value associated with the given name key in the dictionary v,
// following indirect references.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	d, ok := v.dictData()
	if !ok {
		return Value{}
	}
	return resolve(v.r, v.ptr, d[name(key)])
}

// KeyNF is like Key but does not follow an indirect reference: the entry
// is returned as written, with Kind() == Reference if it is one.
func (v Value) KeyNF(key string) Value {
	d, ok := v.dictData()
	if !ok {
		return Value{}
	}
	return Value{v.r, v.ptr, d[name(key)]}
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	d, ok := v.dictData()
	if !ok {
		return nil
	}
	keys := []string{} // not nil
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v, following indirect references.
// If v.Kind() != Array or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return resolve(v.r, v.ptr, x[i])
}

// IndexNF is like Index but does not follow an indirect reference.
func (v Value) IndexNF(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return Value{v.r, v.ptr, x[i]}
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, _ := v.data.(array)
	return len(x)
}

// AsRef returns the reference held by v when v.Kind() == Reference.
func (v Value) AsRef() (Ref, bool) {
	ref, ok := v.data.(Ref)
	return ref, ok
}

// Resolve follows v if it is a Reference and returns the object it names.
// Other values are returned unchanged.
func (v Value) Resolve() Value {
	return resolve(v.r, v.ptr, v.data)
}

// Fetch resolves v through xref instead of the table v was read from.
func (v Value) Fetch(xref XRef) Value {
	return resolve(xref, v.ptr, v.data)
}

func resolve(r XRef, parent Ref, x object) Value {
	for depth := 0; depth < maxRefDepth; depth++ {
		ref, ok := x.(Ref)
		if !ok {
			return Value{r, parent, x}
		}
		if r == nil {
			return Value{}
		}
		v := r.Fetch(ref)
		if v.r != nil {
			r = v.r
		}
		parent, x = ref, v.data
	}
	return Value{}
}

// Clone returns a deep copy of v's dictionaries and arrays. References
// inside v are copied as references; stream data is shared.
func (v Value) Clone() Value {
	return Value{v.r, v.ptr, cloneObject(v.data)}
}

func cloneObject(x object) object {
	switch x := x.(type) {
	case dict:
		return cloneDict(x)
	case array:
		out := make(array, len(x))
		for i, e := range x {
			out[i] = cloneObject(e)
		}
		return out
	case stream:
		x.hdr = cloneDict(x.hdr)
		return x
	}
	return x
}

func cloneDict(d dict) dict {
	if d == nil {
		return nil
	}
	out := make(dict, len(d))
	for k, e := range d {
		out[k] = cloneObject(e)
	}
	return out
}

// NewInt returns an Integer value.
func NewInt(i int64) Value { return Value{data: i} }

// NewReal returns a Real value.
func NewReal(f float64) Value { return Value{data: f} }

// NewBool returns a Bool value.
func NewBool(b bool) Value { return Value{data: b} }

// NewString returns a String value holding the raw bytes of s.
func NewString(s string) Value { return Value{data: s} }

// NewName returns a Name value; n does not include the leading slash.
func NewName(n string) Value { return Value{data: name(n)} }

// NewRef returns an unresolved Reference value.
func NewRef(num uint32, gen uint16) Value { return Value{data: Ref{num, gen}} }

// NewArray returns an Array holding elems.
func NewArray(elems ...Value) Value {
	a := make(array, len(elems))
	for i, e := range elems {
		a[i] = e.data
	}
	return Value{data: a}
}

// NewDict returns a Dict holding entries. Null entries are dropped.
func NewDict(entries map[string]Value) Value {
	return Value{data: toDict(entries)}
}

// NewStream returns an in-memory Stream with header hdr and undecoded data.
func NewStream(hdr map[string]Value, data []byte) Value {
	d := toDict(hdr)
	d["Length"] = int64(len(data))
	return Value{data: stream{hdr: d, data: append([]byte{}, data...)}}
}

func toDict(entries map[string]Value) dict {
	d := make(dict, len(entries))
	for k, e := range entries {
		if e.data != nil {
			d[name(k)] = e.data
		}
	}
	return d
}

// pdfDocDiffs holds the PDFDocEncoding code points that differ from Latin-1.
var pdfDocDiffs = map[byte]rune{
	0x18: '˘', 0x19: 'ˇ', 0x1a: 'ˆ', 0x1b: '˙',
	0x1c: '˝', 0x1d: '˛', 0x1e: '˚', 0x1f: '˜',
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…',
	0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8a: '−', 0x8b: '‰',
	0x8c: '„', 0x8d: '“', 0x8e: '”', 0x8f: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ',
	0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9a: 'ı', 0x9b: 'ł',
	0x9c: 'œ', 0x9d: 'š', 0x9e: 'ž', 0xa0: '€',
}

func pdfDocDecode(s string) string {
	r := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c, ok := pdfDocDiffs[s[i]]; ok {
			r = append(r, c)
			continue
		}
		r = append(r, rune(s[i]))
	}
	return string(r)
}
