// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"errors"
	"fmt"

	"github.com/sassoftware/viya-pdf-view/logger"
)

// ErrPageNotFound is returned when the page tree has no page with the requested number.
var ErrPageNotFound = errors.New("page not found")

// maxTreeDepth bounds the nesting of /Pages nodes.
const maxTreeDepth = 64

type fieldKind int

const (
	fieldAbsent fieldKind = iota
	fieldRef              // an indirect reference, fetched on every access
	fieldValue            // a direct object
)

// A lazyField is a page entry kept as written in the page dictionary.
type lazyField struct {
	kind fieldKind
	raw  Value
}

func (f lazyField) get(xref XRef) Value {
	switch f.kind {
	case fieldRef:
		return f.raw.Fetch(xref)
	case fieldValue:
		return Value{xref, f.raw.ptr, f.raw.data}
	}
	return Value{}
}

// A Page is a single page of a document.
//
// The Contents, Annots, Thumb and Trans entries are not fetched when the
// page is built; each accessor resolves them again on every call.
type Page struct {
	xref  XRef
	num   int
	ref   Ref
	attrs *PageAttrs

	trans    lazyField
	annots   lazyField
	contents lazyField
	thumb    lazyField

	ok bool
}

// NewPage builds page num from its page dictionary and the attributes
// resolved for it. A nil attrs resolves them from dict alone. An unbound
// dict is bound to xref first.
//
// A Contents or Annots entry of the wrong type is dropped and the page is
// marked invalid (see IsOk). A Trans or Thumb entry of the wrong type is
// dropped without affecting validity.
func NewPage(xref XRef, num int, dict Value, attrs *PageAttrs) *Page {
	if dict.XRef() == nil {
		dict = Value{xref, dict.ptr, dict.data}
	}
	if attrs == nil {
		attrs = NewPageAttrs(nil, dict)
	}
	p := &Page{xref: xref, num: num, ref: dict.Ptr(), attrs: attrs, ok: true}

	p.trans = p.readField("Trans", dict.KeyNF("Trans"), Dict)
	p.thumb = p.readField("Thumb", dict.KeyNF("Thumb"), Stream, Reference)

	if p.annots = p.readField("Annots", dict.KeyNF("Annots"), Reference, Array); p.annots.kind == fieldAbsent && !dict.KeyNF("Annots").IsNull() {
		p.ok = false
	}
	if p.contents = p.readField("Contents", dict.KeyNF("Contents"), Reference, Array); p.contents.kind == fieldAbsent && !dict.KeyNF("Contents").IsNull() {
		p.ok = false
	}
	return p
}

func (p *Page) readField(key string, raw Value, allowed ...ValueKind) lazyField {
	k := raw.Kind()
	if k == Null {
		return lazyField{}
	}
	for _, a := range allowed {
		if k != a {
			continue
		}
		if k == Reference {
			return lazyField{kind: fieldRef, raw: raw}
		}
		return lazyField{kind: fieldValue, raw: raw}
	}
	logger.Error(fmt.Sprintf("Page %s object (page %d) is wrong type (%s)", key, p.num, k), "page", p.num, "key", key)
	return lazyField{}
}

// Num returns the 1-based page number.
func (p *Page) Num() int { return p.num }

// Ref returns the indirect reference of the page dictionary, if it had one.
func (p *Page) Ref() Ref { return p.ref }

// XRef returns the table the page resolves its entries through.
func (p *Page) XRef() XRef { return p.xref }

// IsOk reports whether Contents and Annots had acceptable types.
func (p *Page) IsOk() bool { return p.ok }

// Attrs returns the page's resolved attributes.
func (p *Page) Attrs() *PageAttrs { return p.attrs }

func (p *Page) MediaBox() Rectangle { return p.attrs.MediaBox() }
func (p *Page) CropBox() Rectangle  { return p.attrs.CropBox() }
func (p *Page) BleedBox() Rectangle { return p.attrs.BleedBox() }
func (p *Page) TrimBox() Rectangle  { return p.attrs.TrimBox() }
func (p *Page) ArtBox() Rectangle   { return p.attrs.ArtBox() }
func (p *Page) Rotate() int         { return p.attrs.Rotate() }
func (p *Page) Resources() Value    { return p.attrs.Resources() }

// IsCropped reports whether rendering with cropping enabled clips to the CropBox.
func (p *Page) IsCropped() bool { return p.attrs.isCropped() }

// Contents fetches the page's content stream or array of streams.
func (p *Page) Contents() Value { return p.contents.get(p.xref) }

// Annots fetches the page's annotation array.
func (p *Page) Annots() Value { return p.annots.get(p.xref) }

// Thumb fetches the page's thumbnail image stream.
func (p *Page) Thumb() Value { return p.thumb.get(p.xref) }

// Trans fetches the page's transition dictionary.
func (p *Page) Trans() Value { return p.trans.get(p.xref) }

// HasThumb reports whether the page names a thumbnail, without fetching it.
func (p *Page) HasThumb() bool { return p.thumb.kind != fieldAbsent }

// LoadPage finds page num (1-based) below the page tree node root and
// builds it with the attributes accumulated along the path from root.
func LoadPage(xref XRef, root Value, num int) (*Page, error) {
	if num < 1 {
		return nil, fmt.Errorf("page %d: %w", num, ErrPageNotFound)
	}
	w := &treeWalker{xref: xref, num: num, left: num, seen: map[Ref]bool{}}
	if ref := root.Ptr(); ref != (Ref{}) {
		w.seen[ref] = true
	}
	if !isPagesNode(root) {
		if num == 1 && root.Kind() == Dict {
			return NewPage(xref, num, root, NewPageAttrs(nil, root)), nil
		}
		return nil, fmt.Errorf("page %d: %w", num, ErrPageNotFound)
	}
	if p := w.walk(root, nil, 0); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("page %d: %w", num, ErrPageNotFound)
}

type treeWalker struct {
	xref XRef
	num  int
	left int
	seen map[Ref]bool
}

func isPagesNode(v Value) bool {
	return v.Key("Type").Name() == "Pages" || v.Key("Kids").Kind() == Array
}

func (w *treeWalker) walk(node Value, parent *PageAttrs, depth int) *Page {
	if depth > maxTreeDepth {
		logger.Error("page tree too deep", "depth", depth)
		return nil
	}
	attrs := NewPageAttrs(parent, node)
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if ref, ok := kids.IndexNF(i).AsRef(); ok {
			if w.seen[ref] {
				logger.Error(fmt.Sprintf("loop in page tree at %v", ref))
				continue
			}
			w.seen[ref] = true
		}
		kid := kids.Index(i)
		if kid.Kind() != Dict {
			continue
		}
		if isPagesNode(kid) {
			if count := int(kid.Key("Count").Int64()); count > 0 && count < w.left {
				w.left -= count
				continue
			}
			if p := w.walk(kid, attrs, depth+1); p != nil {
				return p
			}
			continue
		}
		w.left--
		if w.left == 0 {
			logger.Debug(fmt.Sprintf("page %d: %v", w.num, kid.Ptr()), true)
			return NewPage(w.xref, w.num, kid, NewPageAttrs(attrs, kid))
		}
	}
	return nil
}
