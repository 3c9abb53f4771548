// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

// Annotation flags (/F).
const (
	AnnotInvisible = 1 << 0
	AnnotHidden    = 1 << 1
	AnnotPrint     = 1 << 2
	AnnotNoView    = 1 << 5
)

// An Annot is one entry of a page's /Annots array.
type Annot struct {
	Subtype string
	Rect    Rectangle // normalized so that X1 <= X2 and Y1 <= Y2
	Flags   int
	Ref     Ref // zero for a direct annotation dictionary

	dict       Value
	appearance Value
}

// LoadAnnots builds the annotations listed in annots. Entries that are
// not dictionaries or have no usable /Rect are skipped.
func LoadAnnots(xref XRef, annots Value) []*Annot {
	annots = annots.Fetch(xref)
	if annots.Kind() != Array {
		return nil
	}
	var list []*Annot
	for i := 0; i < annots.Len(); i++ {
		var ref Ref
		if r, ok := annots.IndexNF(i).AsRef(); ok {
			ref = r
		}
		d := annots.Index(i)
		if d.Kind() != Dict {
			continue
		}
		rect, ok := readRect(d.Key("Rect"))
		if !ok {
			continue
		}
		list = append(list, &Annot{
			Subtype:    d.Key("Subtype").Name(),
			Rect:       rect.Canon(),
			Flags:      int(d.Key("F").Int64()),
			Ref:        ref,
			dict:       d,
			appearance: selectAppearance(d),
		})
	}
	return list
}

// selectAppearance picks the normal appearance stream, using /AS to choose
// among appearance states.
func selectAppearance(d Value) Value {
	n := d.Key("AP").Key("N")
	switch n.Kind() {
	case Stream:
		return n
	case Dict:
		if as := d.Key("AS"); as.Kind() == Name {
			if s := n.Key(as.Name()); s.Kind() == Stream {
				return s
			}
		}
	}
	return Value{}
}

// Dict returns the annotation dictionary.
func (a *Annot) Dict() Value { return a.dict }

// Appearance returns the selected normal appearance stream, or null.
func (a *Annot) Appearance() Value { return a.appearance }

// Contents returns the annotation's text, if any.
func (a *Annot) Contents() string { return a.dict.Key("Contents").Text() }

// Visible reports whether the annotation is shown on screen.
func (a *Annot) Visible() bool {
	return a.Flags&(AnnotHidden|AnnotNoView) == 0
}

// Draw renders the annotation's appearance through gfx. Hidden annotations
// and annotations without an appearance stream draw nothing.
func (a *Annot) Draw(gfx Gfx) {
	if !a.Visible() || a.appearance.IsNull() {
		return
	}
	gfx.SaveState()
	gfx.DoAnnot(a.appearance, a.Rect)
	gfx.RestoreState()
}

// A Link is the active area of a /Link annotation.
type Link struct {
	Rect Rectangle
	// URI is set for URI actions.
	URI string
	// Dest is the /Dest entry or the /D entry of a GoTo action.
	Dest Value
	// Action is the /A dictionary, if any.
	Action Value
}

// Annotations loads the page's annotation list.
func (p *Page) Annotations() []*Annot {
	return LoadAnnots(p.xref, p.Annots())
}

// Links returns the page's link annotations.
func (p *Page) Links() []Link {
	var links []Link
	for _, a := range p.Annotations() {
		if a.Subtype != "Link" {
			continue
		}
		l := Link{Rect: a.Rect, Dest: a.dict.Key("Dest"), Action: a.dict.Key("A")}
		switch l.Action.Key("S").Name() {
		case "URI":
			l.URI = l.Action.Key("URI").RawString()
		case "GoTo":
			if l.Dest.IsNull() {
				l.Dest = l.Action.Key("D")
			}
		}
		links = append(links, l)
	}
	return links
}
