package imageops

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/pillscan/backend/internal/domain"
)

// Crop extracts the rectangle described by box from img. The box is expected
// to be top-left form and already clamped; the crop content is never resized
// or rescaled, so downstream size estimation sees undistorted geometry.
func Crop(img image.Image, box domain.Box) (image.Image, error) {
	rect := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, domain.ErrCropOutOfBounds
	}
	return imaging.Crop(img, rect), nil
}

// EncodeJPEG encodes img as JPEG at the given quality and returns the bytes
// together with the pixel dimensions.
func EncodeJPEG(img image.Image, quality int) ([]byte, int, int, error) {
	if quality < 1 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
