// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog is shared by the fake device and interpreter so that the order
// of their calls can be checked.
type callLog struct {
	calls []string
}

func (l *callLog) add(s string) { l.calls = append(l.calls, s) }

func (l *callLog) String() string { return strings.Join(l.calls, " ") }

type fakeOut struct {
	log        *callLog
	upsideDown bool
	links      []Link
}

func (o *fakeOut) UpsideDown() bool { return o.upsideDown }

func (o *fakeOut) DrawLink(l Link, catalog Value) {
	o.links = append(o.links, l)
	o.log.add("link")
}

func (o *fakeOut) Dump() { o.log.add("dump") }

type fakeGfx struct {
	log        *callLog
	params     GfxParams
	displayErr error
	annots     []Rectangle
}

func (g *fakeGfx) SaveState()    { g.log.add("save") }
func (g *fakeGfx) RestoreState() { g.log.add("restore") }

func (g *fakeGfx) Display(content Value) error {
	g.log.add("display")
	return g.displayErr
}

func (g *fakeGfx) DoAnnot(appearance Value, rect Rectangle) {
	g.log.add("annot")
	g.annots = append(g.annots, rect)
}

// displayFixture returns a page whose content is object 10 and whose
// annotations are a visible one, a hidden one and one without an
// appearance stream, plus the log and interpreter used to render it.
func displayFixture(t *testing.T) (*Page, *callLog, *fakeGfx, GfxFactory) {
	t.Helper()
	tbl := NewObjectTable()
	ap := NewStream(nil, []byte("0 0 m"))
	tbl.Set(Ref{10, 0}, NewStream(nil, []byte("q Q")))
	tbl.Set(Ref{11, 0}, NewDict(map[string]Value{
		"Subtype": NewName("Square"),
		"Rect":    rectValue(10, 10, 20, 20),
		"AP":      NewDict(map[string]Value{"N": ap}),
	}))
	tbl.Set(Ref{12, 0}, NewDict(map[string]Value{
		"Subtype": NewName("Square"),
		"Rect":    rectValue(30, 30, 40, 40),
		"F":       NewInt(AnnotHidden),
		"AP":      NewDict(map[string]Value{"N": ap}),
	}))
	tbl.Set(Ref{13, 0}, NewDict(map[string]Value{
		"Subtype": NewName("Text"),
		"Rect":    rectValue(50, 50, 60, 60),
	}))
	dict := tbl.Bind(NewDict(map[string]Value{
		"MediaBox":  rectValue(0, 0, 612, 792),
		"CropBox":   rectValue(100, 100, 300, 300),
		"Rotate":    NewInt(90),
		"Resources": NewDict(map[string]Value{"ProcSet": NewArray(NewName("PDF"))}),
		"Contents":  NewRef(10, 0),
		"Annots":    NewArray(NewRef(11, 0), NewRef(12, 0), NewRef(13, 0)),
	}))
	p := NewPage(tbl, 2, dict, nil)
	require.True(t, p.IsOk())

	log := &callLog{}
	gfx := &fakeGfx{log: log}
	factory := func(params GfxParams) Gfx {
		gfx.params = params
		log.add("new")
		return gfx
	}
	return p, log, gfx, factory
}

func TestDisplay_InvalidResolution(t *testing.T) {
	p, log, _, factory := displayFixture(t)
	out := &fakeOut{log: log}

	for _, opts := range []DisplayOptions{
		{HDPI: 0, VDPI: 72, NewGfx: factory},
		{HDPI: 72, VDPI: -1, NewGfx: factory},
	} {
		err := p.Display(out, opts)
		assert.True(t, errors.Is(err, ErrInvalidDPI))
	}
	assert.Empty(t, log.calls, "nothing is built or drawn")
}

func TestDisplay_NoInterpreter(t *testing.T) {
	p, log, _, _ := displayFixture(t)
	err := p.Display(&fakeOut{log: log}, DisplayOptions{HDPI: 72, VDPI: 72})
	assert.True(t, errors.Is(err, ErrNoInterpreter))
	assert.Empty(t, log.calls)
}

func TestDisplay_Sequence(t *testing.T) {
	p, log, gfx, factory := displayFixture(t)
	out := &fakeOut{log: log}
	links := []Link{{Rect: Rectangle{1, 1, 2, 2}}, {Rect: Rectangle{3, 3, 4, 4}}}

	err := p.Display(out, DisplayOptions{HDPI: 72, VDPI: 72, Links: links, NewGfx: factory})
	require.NoError(t, err)

	assert.Equal(t, "new save display restore save link link restore dump save annot restore dump", log.String())
	assert.Equal(t, links, out.links)
	assert.Equal(t, []Rectangle{{10, 10, 20, 20}}, gfx.annots, "hidden and appearance-less annotations are skipped")
}

func TestDisplay_NoLinksNoContent(t *testing.T) {
	tbl := NewObjectTable()
	p := NewPage(tbl, 1, NewDict(map[string]Value{}), nil)
	log := &callLog{}
	factory := func(GfxParams) Gfx { return &fakeGfx{log: log} }

	require.NoError(t, p.Display(&fakeOut{log: log}, DisplayOptions{HDPI: 72, VDPI: 72, NewGfx: factory}))
	assert.Empty(t, log.calls, "no annotations means no flush")
}

func TestDisplay_AnnotFilter(t *testing.T) {
	p, log, gfx, factory := displayFixture(t)
	var offered []string
	err := p.Display(&fakeOut{log: log}, DisplayOptions{
		HDPI:   72,
		VDPI:   72,
		NewGfx: factory,
		AnnotFilter: func(a *Annot) bool {
			offered = append(offered, a.Subtype)
			return false
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Square", "Square", "Text"}, offered)
	assert.Empty(t, gfx.annots)
	assert.Equal(t, "new save display restore dump", log.String())
}

func TestDisplay_ContentErrorStillFinishes(t *testing.T) {
	p, log, gfx, factory := displayFixture(t)
	gfx.displayErr = errors.New("bad operator")

	err := p.Display(&fakeOut{log: log}, DisplayOptions{HDPI: 72, VDPI: 72, NewGfx: factory})
	assert.ErrorIs(t, err, gfx.displayErr)
	assert.ErrorContains(t, err, "page 2")
	assert.Len(t, gfx.annots, 1, "annotations are drawn after a content error")
	assert.True(t, strings.HasSuffix(log.String(), "dump"))
}

func TestDisplay_Params(t *testing.T) {
	p, log, gfx, factory := displayFixture(t)
	aborts := 0
	opts := DisplayOptions{
		HDPI:       144,
		VDPI:       72,
		Rotate:     180,
		Crop:       true,
		AbortCheck: func() bool { aborts++; return false },
		NewGfx:     factory,
	}
	require.NoError(t, p.Display(&fakeOut{log: log}, opts))

	params := gfx.params
	assert.Equal(t, 2, params.PageNum)
	assert.Equal(t, 144.0, params.HDPI)
	assert.Equal(t, 72.0, params.VDPI)
	assert.Equal(t, 270, params.Rotate, "page and requested rotation combine")
	assert.Equal(t, Rectangle{0, 0, 612, 792}, params.Box)
	assert.True(t, params.Crop, "the page is cropped and cropping was asked for")
	assert.Equal(t, Rectangle{100, 100, 300, 300}, params.CropBox)
	assert.Equal(t, "PDF", params.Resources.Key("ProcSet").Index(0).Name())
	assert.Equal(t, p.XRef(), params.XRef)
	require.NotNil(t, params.AbortCheck)
	params.AbortCheck()
	assert.Equal(t, 1, aborts)

	opts.Crop = false
	require.NoError(t, p.Display(&fakeOut{log: log}, opts))
	assert.False(t, gfx.params.Crop)
}

func TestDisplaySlice(t *testing.T) {
	tbl := NewObjectTable()
	p := NewPage(tbl, 1, NewDict(map[string]Value{"MediaBox": rectValue(0, 0, 612, 792)}), nil)
	var got GfxParams
	factory := func(params GfxParams) Gfx {
		got = params
		return &fakeGfx{log: &callLog{}}
	}
	opts := DisplayOptions{HDPI: 72, VDPI: 72, NewGfx: factory}

	require.NoError(t, p.DisplaySlice(&fakeOut{log: &callLog{}}, Slice{X: 0, Y: 0, W: 100, H: 50}, opts))
	assert.Equal(t, Rectangle{0, 742, 100, 792}, got.Box)

	require.NoError(t, p.DisplaySlice(&fakeOut{log: &callLog{}, upsideDown: true}, Slice{X: 0, Y: 0, W: 100, H: 50}, opts))
	assert.Equal(t, Rectangle{0, 0, 100, 50}, got.Box)

	// Display always renders the whole page
	opts.Slice = &Slice{W: 10, H: 10}
	require.NoError(t, p.Display(&fakeOut{log: &callLog{}}, opts))
	assert.Equal(t, Rectangle{0, 0, 612, 792}, got.Box)
}

func TestDisplay_ContentGfxEndToEnd(t *testing.T) {
	p, log, _, _ := displayFixture(t)
	var ops []string
	err := p.Display(&fakeOut{log: log}, DisplayOptions{
		HDPI:   72,
		VDPI:   72,
		NewGfx: ContentGfxFactory(func(op string, _ []Value) { ops = append(ops, op) }),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "Q", "annot", "m"}, ops)
	assert.Equal(t, "dump", log.String())
}
