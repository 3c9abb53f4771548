// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

// A Slice selects part of the rendered output, in device pixels measured
// from the device origin. W and H must both be non-negative for the slice
// to take effect.
type Slice struct {
	X, Y, W, H int
}

func (s *Slice) active() bool {
	return s != nil && s.W >= 0 && s.H >= 0
}

// RenderBox maps a render request back to page space. It returns the part
// of media that the output covers and the rotation to render with, which
// is pageRotate+rotate normalized into [0, 360).
//
// Without a slice the whole media box is rendered. With one, the slice is
// scaled by 72/hDPI horizontally and 72/vDPI vertically and placed
// according to the rotation and to upsideDown, which is true for devices
// whose vertical axis points toward the top of the page.
func RenderBox(media Rectangle, pageRotate, rotate int, hDPI, vDPI float64, upsideDown bool, slice *Slice) (Rectangle, int) {
	rot := normRotation(int64(pageRotate) + int64(rotate))
	if !slice.active() {
		return media, rot
	}

	kx := 72.0 / hDPI
	ky := 72.0 / vDPI
	sx, sy := float64(slice.X), float64(slice.Y)
	sw, sh := float64(slice.W), float64(slice.H)

	var box Rectangle
	switch rot {
	case 90:
		if upsideDown {
			box.X1 = media.X2 - ky*(sy+sh)
			box.X2 = media.X2 - ky*sy
		} else {
			box.X1 = media.X1 + ky*sy
			box.X2 = media.X1 + ky*(sy+sh)
		}
		box.Y1 = media.Y1 + kx*sx
		box.Y2 = media.Y1 + kx*(sx+sw)
	case 180:
		box.X1 = media.X2 - kx*(sx+sw)
		box.X2 = media.X2 - kx*sx
		if upsideDown {
			box.Y1 = media.Y2 - ky*(sy+sh)
			box.Y2 = media.Y2 - ky*sy
		} else {
			box.Y1 = media.Y1 + ky*sy
			box.Y2 = media.Y1 + ky*(sy+sh)
		}
	case 270:
		if upsideDown {
			box.X1 = media.X1 + ky*sy
			box.X2 = media.X1 + ky*(sy+sh)
		} else {
			box.X1 = media.X2 - ky*(sy+sh)
			box.X2 = media.X2 - ky*sy
		}
		box.Y1 = media.Y2 - kx*(sx+sw)
		box.Y2 = media.Y2 - kx*sx
	default:
		box.X1 = media.X1 + kx*sx
		box.X2 = media.X1 + kx*(sx+sw)
		if upsideDown {
			box.Y1 = media.Y1 + ky*sy
			box.Y2 = media.Y1 + ky*(sy+sh)
		} else {
			box.Y1 = media.Y2 - ky*(sy+sh)
			box.Y2 = media.Y2 - ky*sy
		}
	}
	return box, rot
}

// PixelSize returns the size in device pixels of box rendered at the given
// resolution and rotation.
func PixelSize(box Rectangle, hDPI, vDPI float64, rotate int) (w, h int) {
	bw, bh := box.Canon().Width(), box.Canon().Height()
	if r := normRotation(int64(rotate)); r == 90 || r == 270 {
		bw, bh = bh, bw
	}
	return int(bw*hDPI/72 + 0.5), int(bh*vDPI/72 + 0.5)
}
