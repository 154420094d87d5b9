package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), A: 255})
		}
	}
	return img
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

func TestJPEGRoundTripKeepsSize(t *testing.T) {
	data, err := EncodeJPEG(testImage(), 90)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data[:2])

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode([]byte("definitely not an image"))
	assert.Error(t, err)

	_, err = Decode([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "))
	assert.Error(t, err)
}

func TestIsWEBP(t *testing.T) {
	assert.True(t, isWEBP([]byte("RIFF1234WEBPdata")))
	assert.False(t, isWEBP([]byte("RIFF1234WAVE")))
	assert.False(t, isWEBP([]byte("RIFF")))
}
