package domain

import "math"

// BoxFromCenter converts a center-point box (cx, cy, w, h), as returned by the
// detector, into a top-left box clamped to the given image bounds.
//
// The conversion rounds before clamping; clamping first produces wrong boxes
// near image edges. When the origin is pulled inside the image the far edge is
// preserved, so a box hanging over the top-left corner shrinks instead of
// sliding inward.
func BoxFromCenter(cx, cy, w, h float64, imageWidth, imageHeight int) Box {
	x := int(math.Round(cx - w/2))
	y := int(math.Round(cy - h/2))
	return Box{
		X:      x,
		Y:      y,
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}.Clamp(imageWidth, imageHeight)
}

// Clamp returns the box constrained to image bounds. The result always
// satisfies x>=0, y>=0, x+width<=imageWidth, y+height<=imageHeight,
// width>=1, height>=1 for any positive image dimensions.
func (b Box) Clamp(imageWidth, imageHeight int) Box {
	x2 := b.X + b.Width
	y2 := b.Y + b.Height

	x := clampInt(b.X, 0, imageWidth-1)
	y := clampInt(b.Y, 0, imageHeight-1)
	x2 = clampInt(x2, x+1, imageWidth)
	y2 = clampInt(y2, y+1, imageHeight)

	return Box{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// Pad grows the box symmetrically by the given fraction of its own dimensions.
// The padded box is not clamped; callers re-clamp against the image bounds.
func (b Box) Pad(fraction float64) Box {
	if fraction <= 0 {
		return b
	}
	padX := int(math.Round(float64(b.Width) * fraction))
	padY := int(math.Round(float64(b.Height) * fraction))
	return Box{
		X:      b.X - padX,
		Y:      b.Y - padY,
		Width:  b.Width + 2*padX,
		Height: b.Height + 2*padY,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
