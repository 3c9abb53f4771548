// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"fmt"
	"io"
	"math"
)

// A ColorSpace converts color components to RGB.
type ColorSpace interface {
	Name() string
	NComps() int
	// RGB converts one color, given in the space's own component ranges,
	// to red, green and blue in [0, 1].
	RGB(comps []float64) (r, g, b float64)
	// DefaultDecode returns the min/max pair of every component used when
	// an image has no /Decode array. maxPixel is the largest sample value.
	DefaultDecode(maxPixel int) []float64
}

// maxColorSpaceDepth bounds nested color space definitions.
const maxColorSpaceDepth = 8

// ParseColorSpace parses a color space name or array.
func ParseColorSpace(v Value) (ColorSpace, error) {
	return parseColorSpace(v, 0)
}

func parseColorSpace(v Value, depth int) (ColorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, fmt.Errorf("color space nested too deeply")
	}
	v = v.Resolve()
	var family string
	switch v.Kind() {
	case Name:
		family = v.Name()
	case Array:
		family = v.Index(0).Name()
	default:
		return nil, fmt.Errorf("bad color space %v", v)
	}

	switch family {
	case "DeviceGray", "G":
		return deviceGray{}, nil
	case "DeviceRGB", "RGB":
		return deviceRGB{}, nil
	case "DeviceCMYK", "CMYK":
		return deviceCMYK{}, nil
	case "CalGray":
		return calGray{}, nil
	case "CalRGB":
		return calRGB{}, nil
	case "Lab":
		return newLab(v.Index(1)), nil
	case "ICCBased":
		return newICCBased(v.Index(1), depth)
	case "Indexed", "I":
		if v.Kind() != Array {
			break
		}
		return newIndexed(v, depth)
	}
	return nil, fmt.Errorf("unsupported color space %v", v)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func unitDecode(n int) []float64 {
	d := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		d[2*i+1] = 1
	}
	return d
}

type deviceGray struct{}

func (deviceGray) Name() string {
	return "DeviceGray"
}

func (deviceGray) NComps() int {
	return 1
}

func (deviceGray) DefaultDecode(int) []float64 {
	return unitDecode(1)
}

func (deviceGray) RGB(c []float64) (r, g, b float64) {
	x := clamp01(c[0])
	return x, x, x
}

type calGray struct{ deviceGray }

func (calGray) Name() string {
	return "CalGray"
}

type deviceRGB struct{}

func (deviceRGB) Name() string {
	return "DeviceRGB"
}

func (deviceRGB) NComps() int {
	return 3
}

func (deviceRGB) DefaultDecode(int) []float64 {
	return unitDecode(3)
}

func (deviceRGB) RGB(c []float64) (r, g, b float64) {
	return clamp01(c[0]), clamp01(c[1]), clamp01(c[2])
}

type calRGB struct{ deviceRGB }

func (calRGB) Name() string {
	return "CalRGB"
}

type deviceCMYK struct{}

func (deviceCMYK) Name() string {
	return "DeviceCMYK"
}

func (deviceCMYK) NComps() int {
	return 4
}

func (deviceCMYK) DefaultDecode(int) []float64 {
	return unitDecode(4)
}

func (deviceCMYK) RGB(c []float64) (r, g, b float64) {
	k := clamp01(c[3])
	return 1 - clamp01(clamp01(c[0])+k), 1 - clamp01(clamp01(c[1])+k), 1 - clamp01(clamp01(c[2])+k)
}

// lab is CIE L*a*b* relative to a white point, converted to sRGB.
type lab struct {
	whiteX, whiteY, whiteZ float64
	aMin, aMax, bMin, bMax float64
}

func newLab(params Value) lab {
	l := lab{whiteX: 0.9505, whiteY: 1, whiteZ: 1.089, aMin: -100, aMax: 100, bMin: -100, bMax: 100}
	if wp := params.Key("WhitePoint"); wp.Len() == 3 {
		l.whiteX, l.whiteY, l.whiteZ = wp.Index(0).Float64(), wp.Index(1).Float64(), wp.Index(2).Float64()
	}
	if rg := params.Key("Range"); rg.Len() == 4 {
		l.aMin, l.aMax = rg.Index(0).Float64(), rg.Index(1).Float64()
		l.bMin, l.bMax = rg.Index(2).Float64(), rg.Index(3).Float64()
	}
	return l
}

func (lab) Name() string {
	return "Lab"
}

func (lab) NComps() int {
	return 3
}

func (l lab) DefaultDecode(int) []float64 {
	return []float64{0, 100, l.aMin, l.aMax, l.bMin, l.bMax}
}

func (l lab) RGB(c []float64) (r, g, b float64) {
	fy := (c[0] + 16) / 116
	fx := fy + c[1]/500
	fz := fy - c[2]/200
	inv := func(t float64) float64 {
		if t >= 6.0/29 {
			return t * t * t
		}
		return 108.0 / 841 * (t - 4.0/29)
	}
	x, y, z := l.whiteX*inv(fx), l.whiteY*inv(fy), l.whiteZ*inv(fz)
	r = 3.2406*x - 1.5372*y - 0.4986*z
	g = -0.9689*x + 1.8758*y + 0.0415*z
	b = 0.0557*x - 0.2040*y + 1.0570*z
	return gammaSRGB(r), gammaSRGB(g), gammaSRGB(b)
}

func gammaSRGB(x float64) float64 {
	x = clamp01(x)
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return 1.055*math.Pow(x, 1/2.4) - 0.055
}

// iccBased uses its alternate space; profiles are not interpreted.
type iccBased struct {
	alt ColorSpace
	n   int
	rng []float64
}

func newICCBased(strm Value, depth int) (ColorSpace, error) {
	n := int(strm.Key("N").Int64())
	var alt ColorSpace
	if a := strm.Key("Alternate"); !a.IsNull() {
		cs, err := parseColorSpace(a, depth+1)
		if err != nil {
			return nil, fmt.Errorf("ICCBased alternate: %w", err)
		}
		alt = cs
	} else {
		switch n {
		case 1:
			alt = deviceGray{}
		case 3:
			alt = deviceRGB{}
		case 4:
			alt = deviceCMYK{}
		default:
			return nil, fmt.Errorf("ICCBased color space with %d components", n)
		}
	}
	if n == 0 {
		n = alt.NComps()
	}
	if n != alt.NComps() {
		return nil, fmt.Errorf("ICCBased color space has %d components, alternate %s has %d", n, alt.Name(), alt.NComps())
	}
	cs := &iccBased{alt: alt, n: n}
	if rg := strm.Key("Range"); rg.Len() == 2*n {
		cs.rng = make([]float64, 2*n)
		for i := range cs.rng {
			cs.rng[i] = rg.Index(i).Float64()
		}
	}
	return cs, nil
}

func (c *iccBased) Name() string {
	return "ICCBased"
}

func (c *iccBased) NComps() int {
	return c.n
}

func (c *iccBased) RGB(x []float64) (r, g, b float64) {
	return c.alt.RGB(x)
}

func (c *iccBased) DefaultDecode(maxPixel int) []float64 {
	if c.rng != nil {
		return append([]float64(nil), c.rng...)
	}
	return c.alt.DefaultDecode(maxPixel)
}

// indexed maps a palette index through a lookup table into its base space.
type indexed struct {
	base   ColorSpace
	hival  int
	lookup []byte
	tmp    []float64
}

func newIndexed(v Value, depth int) (ColorSpace, error) {
	if v.Len() != 4 {
		return nil, fmt.Errorf("bad Indexed color space %v", v)
	}
	base, err := parseColorSpace(v.Index(1), depth+1)
	if err != nil {
		return nil, fmt.Errorf("Indexed base: %w", err)
	}
	if _, ok := base.(*indexed); ok {
		return nil, fmt.Errorf("Indexed color space with Indexed base")
	}
	hv := v.Index(2)
	if hv.Kind() != Integer || hv.Int64() < 0 || hv.Int64() > 255 {
		return nil, fmt.Errorf("bad Indexed hival %v", hv)
	}
	hival := int(hv.Int64())
	need := (hival + 1) * base.NComps()

	var lookup []byte
	switch lv := v.Index(3); lv.Kind() {
	case String:
		lookup = []byte(lv.RawString())
	case Stream:
		rd := lv.Reader()
		lookup, err = io.ReadAll(io.LimitReader(rd, int64(need)))
		rd.Close()
		if err != nil {
			return nil, fmt.Errorf("Indexed lookup: %w", err)
		}
	default:
		return nil, fmt.Errorf("bad Indexed lookup %v", lv)
	}
	if len(lookup) < need {
		return nil, fmt.Errorf("Indexed lookup has %d bytes, need %d", len(lookup), need)
	}
	return &indexed{base: base, hival: hival, lookup: lookup[:need], tmp: make([]float64, base.NComps())}, nil
}

func (c *indexed) Name() string {
	return "Indexed"
}

func (c *indexed) NComps() int {
	return 1
}

func (c *indexed) DefaultDecode(maxPixel int) []float64 {
	return []float64{0, float64(maxPixel)}
}

func (c *indexed) RGB(x []float64) (r, g, b float64) {
	i := int(x[0] + 0.5)
	if i < 0 {
		i = 0
	} else if i > c.hival {
		i = c.hival
	}
	n := c.base.NComps()
	rng := c.base.DefaultDecode(255)
	for k := 0; k < n; k++ {
		lo, hi := rng[2*k], rng[2*k+1]
		c.tmp[k] = lo + (hi-lo)*float64(c.lookup[i*n+k])/255
	}
	return c.base.RGB(c.tmp)
}
