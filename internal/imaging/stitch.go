package imaging

import (
	"fmt"
	"image"
	"image/draw"
)

// maxRenderPixels caps a single output's pixel count. A composite past this
// size would not survive JPEG encoding or upload anyway.
const maxRenderPixels = 1 << 30

// Stitch partitions rasters, in order, into contiguous groups whose summed
// heights stay within maxHeight, and renders each group as one vertically
// concatenated image. Inputs must share a common width (see NormalizeWidth).
//
// A group closes only when the next image would overflow it, which yields
// the minimal number of outputs among partitions that never split an image.
// A single image taller than maxHeight becomes an oversized output of its
// own; pages are atomic and never cropped.
func Stitch(imgs []image.Image, maxHeight int) ([]image.Image, error) {
	if len(imgs) == 0 {
		return nil, ErrEmptyInput
	}
	if maxHeight < 1 {
		return nil, fmt.Errorf("%w: max height %d", ErrRender, maxHeight)
	}

	heights := make([]int, len(imgs))
	for i, img := range imgs {
		heights[i] = img.Bounds().Dy()
	}

	var outputs []image.Image
	for _, g := range partition(heights, maxHeight) {
		section, err := render(imgs[g.start:g.end])
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, section)
	}

	return outputs, nil
}

type group struct {
	start, end int // half-open index range
}

// partition is the greedy grouping over page heights, kept separate from
// rendering so the cut points can be tested without touching pixels.
func partition(heights []int, maxHeight int) []group {
	var groups []group
	start := 0
	sum := 0

	for i, h := range heights {
		if i > start && sum+h > maxHeight {
			groups = append(groups, group{start: start, end: i})
			start = i
			sum = 0
		}
		sum += h
	}

	groups = append(groups, group{start: start, end: len(heights)})
	return groups
}

// render vertically concatenates one group onto a single canvas.
func render(imgs []image.Image) (image.Image, error) {
	width := 0
	height := 0
	for _, img := range imgs {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	if int64(width)*int64(height) > maxRenderPixels {
		return nil, fmt.Errorf("%w: section %dx%d exceeds pixel budget", ErrRender, width, height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	y := 0
	for _, img := range imgs {
		b := img.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Src)
		y += b.Dy()
	}

	return canvas, nil
}
