package imaging

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Load decodes raw page buffers, in reading order, into rasters. One bad
// buffer fails the whole chapter: a composite with a silently missing page
// is worse than a retry next run.
func Load(buffers [][]byte) ([]image.Image, error) {
	out := make([]image.Image, 0, len(buffers))

	for i, b := range buffers {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrDecode, i+1, err)
		}
		out = append(out, img)
	}

	return out, nil
}
