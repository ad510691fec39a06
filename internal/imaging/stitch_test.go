package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page builds a raster whose every pixel carries the page's index in the
// red channel, so reading order survives compositing checks.
func page(idx, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: uint8(idx), G: 0, B: 0, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pages(w int, heights ...int) []image.Image {
	out := make([]image.Image, len(heights))
	for i, h := range heights {
		out[i] = page(i+1, w, h)
	}
	return out
}

func outputHeights(outs []image.Image) []int {
	hs := make([]int, len(outs))
	for i, o := range outs {
		hs[i] = o.Bounds().Dy()
	}
	return hs
}

func TestStitchClosesGroupWhenBudgetWouldOverflow(t *testing.T) {
	outs, err := Stitch(pages(100, 800, 900, 1000), 2000)
	require.NoError(t, err)
	assert.Equal(t, []int{1700, 1000}, outputHeights(outs))
}

func TestStitchOversizedSingleton(t *testing.T) {
	outs, err := Stitch(pages(100, 3000), 2000)
	require.NoError(t, err)
	assert.Equal(t, []int{3000}, outputHeights(outs))
}

func TestStitchPreservesTotalHeightAndOrder(t *testing.T) {
	heights := []int{500, 1200, 300, 700, 2500, 100, 100}
	outs, err := Stitch(pages(40, heights...), 2000)
	require.NoError(t, err)

	total := 0
	for _, h := range outputHeights(outs) {
		total += h
	}
	assert.Equal(t, 5400, total)

	// walking all outputs top to bottom must replay pages 1..n in order
	wantPage := 1
	remaining := heights[0]
	for _, out := range outs {
		b := out.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			c := color.RGBAModel.Convert(out.At(b.Min.X, y)).(color.RGBA)
			require.Equal(t, uint8(wantPage), c.R, "row %d of an output came from the wrong page", y)
			remaining--
			if remaining == 0 && wantPage < len(heights) {
				wantPage++
				remaining = heights[wantPage-1]
			}
		}
	}
}

func TestStitchBoundsRespectedExceptOversized(t *testing.T) {
	heights := []int{1999, 2, 1999, 5000, 10}
	outs, err := Stitch(pages(10, heights...), 2000)
	require.NoError(t, err)

	for _, h := range outputHeights(outs) {
		if h > 2000 {
			// only a lone oversized page may exceed the budget
			assert.Equal(t, 5000, h)
		}
	}
}

func TestStitchExactFit(t *testing.T) {
	outs, err := Stitch(pages(10, 1000, 1000), 2000)
	require.NoError(t, err)
	assert.Equal(t, []int{2000}, outputHeights(outs))
}

func TestStitchDeterministic(t *testing.T) {
	a, err := Stitch(pages(10, 800, 900, 1000, 1500), 2000)
	require.NoError(t, err)
	b, err := Stitch(pages(10, 800, 900, 1000, 1500), 2000)
	require.NoError(t, err)
	assert.Equal(t, outputHeights(a), outputHeights(b))
}

func TestStitchEmptyInput(t *testing.T) {
	_, err := Stitch(nil, 2000)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestStitchInvalidBudget(t *testing.T) {
	_, err := Stitch(pages(10, 100), 0)
	assert.ErrorIs(t, err, ErrRender)
}

func TestPartitionCutPoints(t *testing.T) {
	cases := []struct {
		name    string
		heights []int
		max     int
		want    []group
	}{
		{"single group", []int{100, 200}, 1000, []group{{0, 2}}},
		{"two groups", []int{800, 900, 1000}, 2000, []group{{0, 2}, {2, 3}}},
		{"oversized alone", []int{3000}, 2000, []group{{0, 1}}},
		{"oversized between", []int{100, 3000, 100}, 2000, []group{{0, 1}, {1, 2}, {2, 3}}},
		{"every page overflows", []int{2001, 2001}, 2000, []group{{0, 1}, {1, 2}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, partition(tc.heights, tc.max))
		})
	}
}
