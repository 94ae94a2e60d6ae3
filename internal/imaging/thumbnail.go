// Package imaging prepares frame images for display using GoCV (OpenCV).
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// Default display box for frame images.
const (
	DefaultWidth  = 500
	DefaultHeight = 300
)

var (
	// ErrInvalidSize is returned for non-positive thumbnail dimensions.
	ErrInvalidSize = errors.New("invalid thumbnail size")
	// ErrDecode is returned when a file exists but is not a readable image.
	ErrDecode = errors.New("failed to decode image")
)

// Thumbnail reads the image at path and returns it resized to exactly
// width x height, encoded as PNG.
func Thumbnail(path string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	// IMRead reports a missing file as an empty Mat; stat first so callers
	// can tell not-found from undecodable.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrDecode, path)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationArea)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, resized)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}
