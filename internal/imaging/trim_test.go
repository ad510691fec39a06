package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// noisyPage fills a raster with alternating colors so no row reads as a
// uniform banner, then overlays uniform strips of the given heights.
func noisyPage(w, h, bannerTop, bannerBottom int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 240, G: 12, B: 180, A: 255})
			}
		}
	}

	banner := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < bannerTop; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, banner)
		}
	}
	for y := h - bannerBottom; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, banner)
		}
	}

	return img
}

func TestTrimWatermarkRemovesBottomBanner(t *testing.T) {
	img := noisyPage(200, 800, 0, 40)
	got := TrimWatermark(img)
	assert.Equal(t, 760, got.Bounds().Dy())
}

func TestTrimWatermarkRemovesBothBanners(t *testing.T) {
	img := noisyPage(200, 1000, 30, 50)
	got := TrimWatermark(img)
	assert.Equal(t, 920, got.Bounds().Dy())
}

func TestTrimWatermarkLeavesCleanPagesAlone(t *testing.T) {
	img := noisyPage(200, 800, 0, 0)
	got := TrimWatermark(img)
	assert.Equal(t, 800, got.Bounds().Dy())
}

func TestTrimWatermarkIgnoresThinStrips(t *testing.T) {
	// under trimMinStrip, likely just a bright panel edge
	img := noisyPage(200, 800, 0, 10)
	got := TrimWatermark(img)
	assert.Equal(t, 800, got.Bounds().Dy())
}

func TestTrimWatermarkSkipsTinyPages(t *testing.T) {
	img := noisyPage(50, 100, 30, 0)
	got := TrimWatermark(img)
	assert.Equal(t, 100, got.Bounds().Dy())
}

func TestTrimAllPreservesLength(t *testing.T) {
	in := []image.Image{
		noisyPage(100, 600, 0, 40),
		noisyPage(100, 600, 0, 0),
	}
	out := TrimAll(in)
	assert.Len(t, out, 2)
	assert.Equal(t, 560, out[0].Bounds().Dy())
	assert.Equal(t, 600, out[1].Bounds().Dy())
}
