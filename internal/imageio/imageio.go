// Package imageio decodes source stills and encodes exported JPEGs.
package imageio

import (
	"bytes"
	"image"
	"image/jpeg"

	// Registered for image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/pkg/errors"
)

// Decode decodes JPEG, PNG, GIF or WebP bytes.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	if isWEBP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, errors.Wrap(err, "decode webp")
		}
		return img, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if b := img.Bounds(); b.Empty() {
		return nil, errors.Errorf("decoded %s has no pixels", format)
	}
	return img, nil
}

// EncodeJPEG encodes img at quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	return out.Bytes(), nil
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
