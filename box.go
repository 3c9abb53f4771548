// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import "fmt"

// A Rectangle is a region in page space, in points. (X1,Y1) is nominally
// the lower-left corner and (X2,Y2) the upper-right one, but nothing here
// enforces that ordering.
type Rectangle struct {
	X1, Y1, X2, Y2 float64
}

// Width returns X2 - X1, which is negative for a reversed rectangle.
func (r Rectangle) Width() float64 { return r.X2 - r.X1 }

// Height returns Y2 - Y1, which is negative for a reversed rectangle.
func (r Rectangle) Height() float64 { return r.Y2 - r.Y1 }

// IsZero reports whether all four coordinates are zero.
func (r Rectangle) IsZero() bool { return r == Rectangle{} }

// Canon returns r with X1 <= X2 and Y1 <= Y2.
func (r Rectangle) Canon() Rectangle {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[%g %g %g %g]", r.X1, r.Y1, r.X2, r.Y2)
}

// readRect reads a four-number array. Any other shape, or a non-number
// entry, fails and returns ok == false.
func readRect(v Value) (r Rectangle, ok bool) {
	if v.Kind() != Array || v.Len() != 4 {
		return Rectangle{}, false
	}
	var c [4]float64
	for i := range c {
		e := v.Index(i)
		if !e.IsNumber() {
			return Rectangle{}, false
		}
		c[i] = e.Float64()
	}
	return Rectangle{c[0], c[1], c[2], c[3]}, true
}

// exceedsCrop is the test for a media box that is much larger than its
// crop box: the combined margins on either axis exceed a quarter of the
// crop box's size on that axis.
func exceedsCrop(media, crop Rectangle) bool {
	w := 0.25 * crop.Width()
	h := 0.25 * crop.Height()
	return (crop.X1-media.X1)+(media.X2-crop.X2) > w ||
		(crop.Y1-media.Y1)+(media.Y2-crop.Y2) > h
}
