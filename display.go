// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"errors"
	"fmt"

	"github.com/sassoftware/viya-pdf-view/logger"
)

var (
	// ErrInvalidDPI is returned by Display for a non-positive resolution.
	ErrInvalidDPI = errors.New("resolution must be positive")
	// ErrNoInterpreter is returned by Display when no GfxFactory is set.
	ErrNoInterpreter = errors.New("no content interpreter")
)

// An OutputDev receives the result of rendering a page.
type OutputDev interface {
	// UpsideDown reports whether the device's vertical axis points toward
	// the top of the page.
	UpsideDown() bool
	// DrawLink draws a link overlay directly on the device.
	DrawLink(link Link, catalog Value)
	// Dump flushes what has been drawn so far.
	Dump()
}

// A Gfx interprets page content against an OutputDev.
type Gfx interface {
	SaveState()
	RestoreState()
	// Display runs a content stream, or an array of them, through the interpreter.
	Display(content Value) error
	// DoAnnot draws an annotation appearance stream into rect.
	DoAnnot(appearance Value, rect Rectangle)
}

// GfxParams is what an interpreter is built from for one render call.
type GfxParams struct {
	XRef       XRef
	Out        OutputDev
	PageNum    int
	Resources  Value
	HDPI, VDPI float64
	Box        Rectangle // the part of the page being rendered
	Crop       bool      // clip to CropBox
	CropBox    Rectangle
	Rotate     int
	AbortCheck func() bool
}

// A GfxFactory builds the interpreter for one render call.
type GfxFactory func(GfxParams) Gfx

// DisplayOptions controls a single render call. The callbacks are used for
// the duration of the call only.
type DisplayOptions struct {
	HDPI, VDPI float64
	// Rotate is added to the page's own rotation.
	Rotate int
	// Crop clips to the CropBox when the page is cropped (see Page.IsCropped).
	Crop bool
	// Slice restricts rendering to part of the output; nil renders the whole page.
	Slice *Slice

	// Links, when non-nil, are drawn on the output device after the content.
	Links   []Link
	Catalog Value

	// AbortCheck is polled by the interpreter; returning true stops rendering.
	AbortCheck func() bool
	// AnnotFilter decides which annotations are drawn. Nil draws all of them.
	AnnotFilter func(*Annot) bool

	NewGfx GfxFactory
}

// Display renders the whole page to out.
func (p *Page) Display(out OutputDev, opts DisplayOptions) error {
	opts.Slice = nil
	return p.display(out, opts)
}

// DisplaySlice renders the part of the page selected by slice to out.
func (p *Page) DisplaySlice(out OutputDev, slice Slice, opts DisplayOptions) error {
	opts.Slice = &slice
	return p.display(out, opts)
}

func (p *Page) display(out OutputDev, opts DisplayOptions) error {
	if opts.HDPI <= 0 || opts.VDPI <= 0 {
		return fmt.Errorf("page %d: %w: %gx%g", p.num, ErrInvalidDPI, opts.HDPI, opts.VDPI)
	}
	if opts.NewGfx == nil {
		return fmt.Errorf("page %d: %w", p.num, ErrNoInterpreter)
	}

	box, rot := RenderBox(p.MediaBox(), p.Rotate(), opts.Rotate, opts.HDPI, opts.VDPI, out.UpsideDown(), opts.Slice)
	cropBox := p.CropBox()
	cropped := p.IsCropped()

	logger.Debug(fmt.Sprintf("***** MediaBox = ll:%g,%g ur:%g,%g", box.X1, box.Y1, box.X2, box.Y2), true)
	if cropped {
		logger.Debug(fmt.Sprintf("***** CropBox = ll:%g,%g ur:%g,%g", cropBox.X1, cropBox.Y1, cropBox.X2, cropBox.Y2), true)
	}
	logger.Debug(fmt.Sprintf("***** Rotate = %d", p.Rotate()), true)

	gfx := opts.NewGfx(GfxParams{
		XRef:       p.xref,
		Out:        out,
		PageNum:    p.num,
		Resources:  p.Resources(),
		HDPI:       opts.HDPI,
		VDPI:       opts.VDPI,
		Box:        box,
		Crop:       opts.Crop && cropped,
		CropBox:    cropBox,
		Rotate:     rot,
		AbortCheck: opts.AbortCheck,
	})

	var contentErr error
	if content := p.Contents(); !content.IsNull() {
		gfx.SaveState()
		contentErr = gfx.Display(content)
		gfx.RestoreState()
		if contentErr != nil {
			logger.Error(fmt.Sprintf("page %d: content: %v", p.num, contentErr), "page", p.num)
		}
	}

	if opts.Links != nil {
		gfx.SaveState()
		for _, l := range opts.Links {
			out.DrawLink(l, opts.Catalog)
		}
		gfx.RestoreState()
		out.Dump()
	}

	if annots := LoadAnnots(p.xref, p.Annots()); len(annots) > 0 {
		logger.Debug("***** Annotations", true)
		for _, a := range annots {
			if opts.AnnotFilter == nil || opts.AnnotFilter(a) {
				a.Draw(gfx)
			}
		}
		out.Dump()
	}

	if contentErr != nil {
		return fmt.Errorf("page %d: %w", p.num, contentErr)
	}
	return nil
}
