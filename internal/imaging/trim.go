package imaging

import (
	"image"
	"image/color"
)

// Watermark banners on the source sites are near-uniform horizontal strips
// pasted onto page tops and bottoms. TrimWatermark removes such a strip only
// on a confident match, and never cuts into more than 15% of the page from
// either edge.

const (
	trimSearchFraction = 0.15 // band searched at each edge
	trimMinStrip       = 24   // px; thinner strips are left alone
	trimRowTolerance   = 12   // max channel deviation within a uniform row
	minRetainFraction  = 0.85
)

// TrimWatermark returns the raster with detected banner strips cropped off,
// or the input unchanged when nothing confident was found.
func TrimWatermark(img image.Image) image.Image {
	b := img.Bounds()
	h := b.Dy()
	band := int(float64(h) * trimSearchFraction)
	if band < trimMinStrip {
		return img
	}

	top := uniformStripDepth(img, b.Min.Y, b.Min.Y+band, 1)
	bottom := uniformStripDepth(img, b.Max.Y-1, b.Max.Y-1-band, -1)

	if top < trimMinStrip {
		top = 0
	}
	if bottom < trimMinStrip {
		bottom = 0
	}
	if top == 0 && bottom == 0 {
		return img
	}

	kept := h - top - bottom
	if float64(kept) < float64(h)*minRetainFraction {
		return img
	}

	cropped := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y-bottom)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(cropped)
	}
	return img
}

// TrimAll applies TrimWatermark to every page.
func TrimAll(imgs []image.Image) []image.Image {
	out := make([]image.Image, len(imgs))
	for i, img := range imgs {
		out[i] = TrimWatermark(img)
	}
	return out
}

// uniformStripDepth walks rows from an edge (step +1 from the top, -1 from
// the bottom) and counts how many consecutive rows are near-uniform in
// color, i.e. look like a banner background rather than page art.
func uniformStripDepth(img image.Image, fromY, toY, step int) int {
	depth := 0
	for y := fromY; y != toY; y += step {
		if !uniformRow(img, y) {
			break
		}
		depth++
	}
	return depth
}

func uniformRow(img image.Image, y int) bool {
	b := img.Bounds()
	width := b.Dx()
	if width == 0 {
		return false
	}

	// sample up to 64 evenly spaced pixels per row
	stride := width / 64
	if stride < 1 {
		stride = 1
	}

	var minR, minG, minB = 255, 255, 255
	var maxR, maxG, maxB int

	for x := b.Min.X; x < b.Max.X; x += stride {
		c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
		minR, maxR = minMax(minR, maxR, int(c.R))
		minG, maxG = minMax(minG, maxG, int(c.G))
		minB, maxB = minMax(minB, maxB, int(c.B))
	}

	return maxR-minR <= trimRowTolerance &&
		maxG-minG <= trimRowTolerance &&
		maxB-minB <= trimRowTolerance
}

func minMax(lo, hi, v int) (int, int) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}
