package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// EncodeJPEG renders a stitched section to the bytes uploaded to Drive.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	return buf.Bytes(), nil
}
