// Package imaging turns a chapter's downloaded page images into a small
// number of height-bounded composite images, preserving reading order.
package imaging

import "errors"

var (
	// ErrDecode marks a corrupt or unsupported page image.
	ErrDecode = errors.New("image decode failed")

	// ErrEmptyInput signals a chapter with no page images at all.
	ErrEmptyInput = errors.New("no images to stitch")

	// ErrRender marks a compositing failure while building an output image.
	ErrRender = errors.New("render failed")
)
