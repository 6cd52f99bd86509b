// Package imageops holds the local image codec and pixel operations the
// pipeline needs: decoding uploads, extracting padded region crops, and
// sampling a dominant-color hint. It never talks to the network.
package imageops

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp"
)

// Decode decodes an uploaded image from raw bytes. Standard formats are tried
// first; chai2010/webp is kept as an explicit fallback for webp variants the
// registered decoder rejects.
func Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}
