// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import "fmt"

// An ImageColorMap converts raw image samples to RGB, applying the image's
// Decode ranges before the color space conversion.
type ImageColorMap struct {
	cs     ColorSpace
	bits   int
	nComps int
	low    []float64
	scale  []float64 // per component, (max-min)/maxPixel
	comps  []float64
}

// NewImageColorMap builds the color map for samples of the given bit depth
// in cs. decode is the image's /Decode array, or null for the color
// space's default ranges.
func NewImageColorMap(bits int, decode Value, cs ColorSpace) (*ImageColorMap, error) {
	switch bits {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("unsupported bits per component %d", bits)
	}
	if cs == nil {
		return nil, fmt.Errorf("no color space")
	}
	n := cs.NComps()
	maxPixel := 1<<bits - 1

	var rng []float64
	switch decode.Kind() {
	case Null:
		rng = cs.DefaultDecode(maxPixel)
	case Array:
		if decode.Len() != 2*n {
			return nil, fmt.Errorf("Decode array has %d entries, want %d", decode.Len(), 2*n)
		}
		rng = make([]float64, 2*n)
		for i := range rng {
			e := decode.Index(i)
			if !e.IsNumber() {
				return nil, fmt.Errorf("Decode array entry %d is %s", i, e.Kind())
			}
			rng[i] = e.Float64()
		}
	default:
		return nil, fmt.Errorf("Decode is %s, not an array", decode.Kind())
	}

	m := &ImageColorMap{
		cs:     cs,
		bits:   bits,
		nComps: n,
		low:    make([]float64, n),
		scale:  make([]float64, n),
		comps:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		m.low[i] = rng[2*i]
		m.scale[i] = (rng[2*i+1] - rng[2*i]) / float64(maxPixel)
	}
	return m, nil
}

// NComps returns the number of samples per pixel.
func (m *ImageColorMap) NComps() int { return m.nComps }

// Bits returns the sample bit depth.
func (m *ImageColorMap) Bits() int { return m.bits }

// ColorSpace returns the color space the map converts from.
func (m *ImageColorMap) ColorSpace() ColorSpace { return m.cs }

// RGB converts one pixel's samples to red, green and blue in [0, 1].
// pix must hold NComps samples.
func (m *ImageColorMap) RGB(pix []uint16) (r, g, b float64) {
	for i := 0; i < m.nComps; i++ {
		m.comps[i] = m.low[i] + float64(pix[i])*m.scale[i]
	}
	r, g, b = m.cs.RGB(m.comps)
	return clamp01(r), clamp01(g), clamp01(b)
}
