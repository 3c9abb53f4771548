// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rectValue(c ...float64) Value {
	elems := make([]Value, len(c))
	for i, x := range c {
		elems[i] = NewReal(x)
	}
	return NewArray(elems...)
}

func TestRectangle(t *testing.T) {
	r := Rectangle{10, 20, 0, 5}
	assert.Equal(t, -10.0, r.Width())
	assert.Equal(t, -15.0, r.Height())
	assert.Equal(t, Rectangle{0, 5, 10, 20}, r.Canon())
	assert.False(t, r.IsZero())
	assert.True(t, Rectangle{}.IsZero())
	assert.Equal(t, "[0 0 612 792]", defaultMediaBox.String())
}

func TestReadRect(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want Rectangle
		ok   bool
	}{
		{"integers", NewArray(NewInt(0), NewInt(0), NewInt(612), NewInt(792)), Rectangle{0, 0, 612, 792}, true},
		{"reals", rectValue(0.5, 1, 2, 3.25), Rectangle{0.5, 1, 2, 3.25}, true},
		{"reversed kept as written", rectValue(100, 100, 0, 0), Rectangle{100, 100, 0, 0}, true},
		{"too short", rectValue(0, 0, 612), Rectangle{}, false},
		{"too long", rectValue(0, 0, 612, 792, 1), Rectangle{}, false},
		{"non-number entry", NewArray(NewInt(0), NewString("0"), NewInt(612), NewInt(792)), Rectangle{}, false},
		{"not an array", NewInt(4), Rectangle{}, false},
		{"null", Value{}, Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := readRect(tt.v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExceedsCrop(t *testing.T) {
	media := Rectangle{0, 0, 100, 100}
	tests := []struct {
		name string
		crop Rectangle
		want bool
	}{
		{"same box", media, false},
		{"exactly a quarter horizontally", Rectangle{0, 0, 80, 100}, false},
		{"just over a quarter horizontally", Rectangle{0, 0, 79, 100}, true},
		{"exactly a quarter vertically", Rectangle{0, 10, 100, 90}, false},
		{"just over a quarter vertically", Rectangle{0, 10.5, 100, 89.5}, true},
		{"margins split across both sides", Rectangle{15, 0, 85, 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exceedsCrop(media, tt.crop))
		})
	}
}

func TestNewPageAttrs_LimitToCropBox(t *testing.T) {
	tests := []struct {
		crop Value
		want bool
	}{
		{rectValue(100, 100, 900, 900), false},
		{rectValue(300, 300, 700, 700), true},
		{Value{}, false},
	}
	for _, tt := range tests {
		a := NewPageAttrs(nil, NewDict(map[string]Value{
			"MediaBox": rectValue(0, 0, 1000, 1000),
			"CropBox":  tt.crop,
		}))
		assert.Equal(t, tt.want, a.LimitToCropBox(), "crop %s", tt.crop)
	}
}

func TestNewPageAttrs_Defaults(t *testing.T) {
	a := NewPageAttrs(nil, NewDict(nil))

	assert.Equal(t, defaultMediaBox, a.MediaBox())
	assert.Equal(t, defaultMediaBox, a.CropBox(), "CropBox falls back to MediaBox")
	assert.Equal(t, defaultMediaBox, a.BleedBox())
	assert.Equal(t, defaultMediaBox, a.TrimBox())
	assert.Equal(t, defaultMediaBox, a.ArtBox())
	assert.False(t, a.HaveCropBox())
	assert.False(t, a.LimitToCropBox())
	assert.False(t, a.isCropped())
	assert.Equal(t, 0, a.Rotate())
	assert.True(t, a.Resources().IsNull())
	assert.True(t, a.LastModified().IsNull())
	assert.True(t, a.Metadata().IsNull())
}

func TestNewPageAttrs_Boxes(t *testing.T) {
	a := NewPageAttrs(nil, NewDict(map[string]Value{
		"MediaBox": rectValue(0, 0, 600, 800),
		"CropBox":  rectValue(10, 10, 590, 790),
		"BleedBox": rectValue(5, 5, 595, 795),
		"TrimBox":  rectValue(0, 0, 1), // malformed, falls back to the crop box
		"ArtBox":   rectValue(20, 20, 580, 780),
	}))

	assert.Equal(t, Rectangle{0, 0, 600, 800}, a.MediaBox())
	assert.Equal(t, Rectangle{10, 10, 590, 790}, a.CropBox())
	assert.Equal(t, Rectangle{5, 5, 595, 795}, a.BleedBox())
	assert.Equal(t, Rectangle{10, 10, 590, 790}, a.TrimBox())
	assert.Equal(t, Rectangle{20, 20, 580, 780}, a.ArtBox())
	assert.True(t, a.HaveCropBox())
	assert.False(t, a.LimitToCropBox())
}

func TestNewPageAttrs_MalformedMediaBoxKeepsInherited(t *testing.T) {
	parent := NewPageAttrs(nil, NewDict(map[string]Value{"MediaBox": rectValue(0, 0, 300, 400)}))
	child := NewPageAttrs(parent, NewDict(map[string]Value{
		"MediaBox": NewArray(NewInt(0), NewInt(0), NewName("wide"), NewInt(10)),
	}))
	assert.Equal(t, Rectangle{0, 0, 300, 400}, child.MediaBox())
	assert.Equal(t, Rectangle{0, 0, 300, 400}, child.CropBox())
}

func TestNewPageAttrs_Inheritance(t *testing.T) {
	tbl := NewObjectTable()
	parent := NewPageAttrs(nil, tbl.Bind(NewDict(map[string]Value{
		"MediaBox":     rectValue(0, 0, 400, 400),
		"CropBox":      rectValue(0, 0, 200, 200),
		"Rotate":       NewInt(90),
		"LastModified": NewString("D:2020"),
		"Group":        NewDict(map[string]Value{"S": NewName("Transparency")}),
		"Resources":    NewDict(map[string]Value{"ProcSet": NewArray(NewName("PDF"))}),
	})))
	require.True(t, parent.LimitToCropBox())

	child := NewPageAttrs(parent, tbl.Bind(NewDict(map[string]Value{
		"MediaBox":     rectValue(0, 0, 210, 210),
		"LastModified": NewString("D:2021"),
	})))

	assert.Equal(t, Rectangle{0, 0, 210, 210}, child.MediaBox())
	assert.Equal(t, Rectangle{0, 0, 200, 200}, child.CropBox(), "CropBox is inherited")
	assert.True(t, child.HaveCropBox())
	assert.False(t, child.LimitToCropBox(), "recomputed against the child's MediaBox")
	assert.Equal(t, 90, child.Rotate())
	assert.Equal(t, "D:2021", child.LastModified().Text())
	assert.Equal(t, "Transparency", child.Group().Key("S").Name())
	assert.Equal(t, "PDF", child.Resources().Key("ProcSet").Index(0).Name())
}

func TestNewPageAttrs_CropBoxFollowsChildMediaBox(t *testing.T) {
	parent := NewPageAttrs(nil, NewDict(map[string]Value{"MediaBox": rectValue(0, 0, 400, 400)}))
	child := NewPageAttrs(parent, NewDict(map[string]Value{"MediaBox": rectValue(0, 0, 100, 100)}))

	assert.Equal(t, Rectangle{0, 0, 100, 100}, child.CropBox())
	assert.Equal(t, Rectangle{0, 0, 100, 100}, child.ArtBox())
	assert.False(t, child.HaveCropBox())
}

func TestNewPageAttrs_Rotate(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int
	}{
		{"zero", NewInt(0), 0},
		{"quarter", NewInt(90), 90},
		{"over a turn", NewInt(450), 90},
		{"negative", NewInt(-90), 270},
		{"large negative", NewInt(-810), 270},
		{"full turns", NewInt(720), 0},
		{"real is ignored", NewReal(90), 180},
		{"name is ignored", NewName("90"), 180},
	}
	parent := NewPageAttrs(nil, NewDict(map[string]Value{"Rotate": NewInt(180)}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewPageAttrs(parent, NewDict(map[string]Value{"Rotate": tt.v}))
			assert.Equal(t, tt.want, a.Rotate())
		})
	}
}

func TestNewPageAttrs_ResourcesAreCopied(t *testing.T) {
	tbl := NewObjectTable()
	res := tbl.Add(NewDict(map[string]Value{"Font": NewDict(map[string]Value{"F1": NewName("Helvetica")})}))
	parent := NewPageAttrs(nil, tbl.Bind(NewDict(map[string]Value{"Resources": res})))
	child := NewPageAttrs(parent, NewDict(nil))

	require.Equal(t, Dict, parent.Resources().Kind())
	require.Equal(t, Dict, child.Resources().Kind())

	// changing the child's copy leaves the parent's alone
	d := child.Resources().data.(dict)
	d[name("XObject")] = dict{}
	d[name("Font")].(dict)[name("F2")] = name("Courier")

	assert.True(t, parent.Resources().Key("XObject").IsNull())
	assert.True(t, parent.Resources().Key("Font").Key("F2").IsNull())
	assert.Equal(t, "Helvetica", parent.Resources().Key("Font").Key("F1").Name())

	// the stored object in the table is untouched too
	assert.True(t, tbl.Fetch(Ref{Num: 1}).Key("Font").Key("F2").IsNull())
}

func TestNewPageAttrs_NonDictResourcesIgnored(t *testing.T) {
	parent := NewPageAttrs(nil, NewDict(map[string]Value{
		"Resources": NewDict(map[string]Value{"ProcSet": NewArray(NewName("PDF"))}),
	}))
	child := NewPageAttrs(parent, NewDict(map[string]Value{"Resources": NewArray()}))
	assert.Equal(t, Dict, child.Resources().Kind())
}

func TestNewPageAttrs_PassThrough(t *testing.T) {
	a := NewPageAttrs(nil, NewDict(map[string]Value{
		"LastModified":   NewString("D:20240101"),
		"BoxColorInfo":   NewDict(map[string]Value{"CropBox": NewDict(nil)}),
		"Group":          NewDict(map[string]Value{"S": NewName("Transparency")}),
		"Metadata":       NewStream(map[string]Value{"Type": NewName("Metadata")}, []byte("<x/>")),
		"PieceInfo":      NewDict(map[string]Value{"App": NewDict(nil)}),
		"SeparationInfo": NewDict(map[string]Value{"DeviceColorant": NewName("Cyan")}),
	}))
	assert.Equal(t, String, a.LastModified().Kind())
	assert.Equal(t, Dict, a.BoxColorInfo().Kind())
	assert.Equal(t, Dict, a.Group().Kind())
	assert.Equal(t, Stream, a.Metadata().Kind())
	assert.Equal(t, Dict, a.PieceInfo().Kind())
	assert.Equal(t, "Cyan", a.SeparationInfo().Key("DeviceColorant").Name())
}
