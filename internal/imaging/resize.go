package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// NormalizeWidth scales every raster to the widest input's width, preserving
// aspect ratio, so the stitcher can assume a uniform width. Already-matching
// images pass through untouched.
func NormalizeWidth(imgs []image.Image) []image.Image {
	if len(imgs) == 0 {
		return imgs
	}

	target := 0
	for _, img := range imgs {
		if w := img.Bounds().Dx(); w > target {
			target = w
		}
	}

	out := make([]image.Image, len(imgs))
	for i, img := range imgs {
		b := img.Bounds()
		if b.Dx() == target {
			out[i] = img
			continue
		}

		h := b.Dy() * target / b.Dx()
		if h < 1 {
			h = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, target, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		out[i] = dst
	}

	return out
}
