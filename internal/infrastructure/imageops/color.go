package imageops

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// hintPalette maps reference hues to the names used by the color vocabulary.
// The hint is advisory secondary context for the extraction prompt; it never
// overrides what the vision model reads from the crop itself.
var hintPalette = []struct {
	name  string
	color colorful.Color
}{
	{"white", colorful.Color{R: 0.95, G: 0.95, B: 0.95}},
	{"beige", colorful.Color{R: 0.90, G: 0.85, B: 0.72}},
	{"black", colorful.Color{R: 0.05, G: 0.05, B: 0.05}},
	{"gray", colorful.Color{R: 0.55, G: 0.55, B: 0.55}},
	{"red", colorful.Color{R: 0.80, G: 0.12, B: 0.12}},
	{"maroon", colorful.Color{R: 0.45, G: 0.10, B: 0.15}},
	{"orange", colorful.Color{R: 0.95, G: 0.55, B: 0.10}},
	{"peach", colorful.Color{R: 0.98, G: 0.80, B: 0.65}},
	{"yellow", colorful.Color{R: 0.95, G: 0.90, B: 0.20}},
	{"gold", colorful.Color{R: 0.80, G: 0.65, B: 0.15}},
	{"green", colorful.Color{R: 0.15, G: 0.60, B: 0.25}},
	{"blue", colorful.Color{R: 0.15, G: 0.30, B: 0.75}},
	{"purple", colorful.Color{R: 0.50, G: 0.20, B: 0.65}},
	{"pink", colorful.Color{R: 0.95, G: 0.60, B: 0.75}},
	{"brown", colorful.Color{R: 0.45, G: 0.30, B: 0.18}},
	{"tan", colorful.Color{R: 0.80, G: 0.65, B: 0.45}},
}

// DominantColorHint averages the central region of a crop and names the
// nearest palette color in Lab space. Returns empty for degenerate images.
func DominantColorHint(img image.Image) string {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return ""
	}

	// Sample the central 50% so background pixels around the pill edge
	// don't dominate the average.
	x0 := bounds.Min.X + w/4
	y0 := bounds.Min.Y + h/4
	x1 := bounds.Max.X - w/4
	y1 := bounds.Max.Y - h/4

	var sumR, sumG, sumB float64
	var count float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sumR += float64(r) / 65535.0
			sumG += float64(g) / 65535.0
			sumB += float64(b) / 65535.0
			count++
		}
	}
	if count == 0 {
		return ""
	}

	avg := colorful.Color{R: sumR / count, G: sumG / count, B: sumB / count}

	best := ""
	bestDist := -1.0
	for _, ref := range hintPalette {
		d := avg.DistanceLab(ref.color)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = ref.name
		}
	}
	return best
}
