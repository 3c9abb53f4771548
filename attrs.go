// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

// PageAttrs holds the attributes of a page that can be inherited from the
// page tree: the page boxes, rotation and resources, plus a few entries
// that are carried along uninterpreted. A PageAttrs is not modified after
// NewPageAttrs returns.
type PageAttrs struct {
	mediaBox Rectangle
	cropBox  Rectangle
	bleedBox Rectangle
	trimBox  Rectangle
	artBox   Rectangle

	haveCropBox    bool
	limitToCropBox bool
	rotate         int

	lastModified   Value
	boxColorInfo   Value
	group          Value
	metadata       Value
	pieceInfo      Value
	separationInfo Value

	resources Value
}

// defaultMediaBox is US Letter, used when no node of the page tree has a MediaBox.
var defaultMediaBox = Rectangle{0, 0, 612, 792}

// NewPageAttrs resolves the attributes of the page tree node dict, starting
// from the attributes inherited from parent (nil for the root). It never
// fails: malformed entries leave the inherited or default value in place.
func NewPageAttrs(parent *PageAttrs, dict Value) *PageAttrs {
	a := &PageAttrs{}
	if parent != nil {
		a.mediaBox = parent.mediaBox
		a.cropBox = parent.cropBox
		a.haveCropBox = parent.haveCropBox
		a.rotate = parent.rotate
		a.lastModified = parent.lastModified
		a.boxColorInfo = parent.boxColorInfo
		a.group = parent.group
		a.metadata = parent.metadata
		a.pieceInfo = parent.pieceInfo
		a.separationInfo = parent.separationInfo
		a.resources = parent.resources.Clone()
	} else {
		a.mediaBox = defaultMediaBox
	}

	if r, ok := readRect(dict.Key("MediaBox")); ok {
		a.mediaBox = r
	}
	if r, ok := readRect(dict.Key("CropBox")); ok {
		a.cropBox = r
		a.haveCropBox = true
	}
	if !a.haveCropBox {
		a.cropBox = a.mediaBox
	}
	a.limitToCropBox = a.haveCropBox && exceedsCrop(a.mediaBox, a.cropBox)

	a.bleedBox = readRectDefault(dict.Key("BleedBox"), a.cropBox)
	a.trimBox = readRectDefault(dict.Key("TrimBox"), a.cropBox)
	a.artBox = readRectDefault(dict.Key("ArtBox"), a.cropBox)

	if rot := dict.Key("Rotate"); rot.Kind() == Integer {
		a.rotate = normRotation(rot.Int64())
	}

	for _, f := range []struct {
		key string
		dst *Value
	}{
		{"LastModified", &a.lastModified},
		{"BoxColorInfo", &a.boxColorInfo},
		{"Group", &a.group},
		{"Metadata", &a.metadata},
		{"PieceInfo", &a.pieceInfo},
		{"SeparationInfo", &a.separationInfo},
	} {
		if v := dict.Key(f.key); !v.IsNull() {
			*f.dst = v
		}
	}

	if res := dict.Key("Resources"); res.Kind() == Dict {
		a.resources = res.Clone()
	}
	return a
}

func readRectDefault(v Value, def Rectangle) Rectangle {
	if r, ok := readRect(v); ok {
		return r
	}
	return def
}

// normRotation maps any whole number of degrees into [0, 360).
func normRotation(r int64) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return int(r)
}

func (a *PageAttrs) MediaBox() Rectangle { return a.mediaBox }
func (a *PageAttrs) CropBox() Rectangle  { return a.cropBox }
func (a *PageAttrs) BleedBox() Rectangle { return a.bleedBox }
func (a *PageAttrs) TrimBox() Rectangle  { return a.trimBox }
func (a *PageAttrs) ArtBox() Rectangle   { return a.artBox }

// HaveCropBox reports whether a CropBox was given on the page or one of its ancestors.
func (a *PageAttrs) HaveCropBox() bool { return a.haveCropBox }

// LimitToCropBox reports whether the media box is excessively larger than
// an explicit crop box.
func (a *PageAttrs) LimitToCropBox() bool { return a.limitToCropBox }

// Rotate returns the page rotation in degrees, in [0, 360).
func (a *PageAttrs) Rotate() int { return a.rotate }

// Resources returns the resource dictionary, or null if none was found.
// Each PageAttrs holds its own copy.
func (a *PageAttrs) Resources() Value { return a.resources }

func (a *PageAttrs) LastModified() Value   { return a.lastModified }
func (a *PageAttrs) BoxColorInfo() Value   { return a.boxColorInfo }
func (a *PageAttrs) Group() Value          { return a.group }
func (a *PageAttrs) Metadata() Value       { return a.metadata }
func (a *PageAttrs) PieceInfo() Value      { return a.pieceInfo }
func (a *PageAttrs) SeparationInfo() Value { return a.separationInfo }

// isCropped re-evaluates the crop test against the current boxes.
func (a *PageAttrs) isCropped() bool {
	return a.haveCropBox && exceedsCrop(a.mediaBox, a.cropBox)
}
