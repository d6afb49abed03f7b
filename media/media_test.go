package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize_ResizesWideImages(t *testing.T) {
	out, name, err := Normalize(pngOf(t, 1600, 400))
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxWidth, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestNormalize_KeepsSmallImages(t *testing.T) {
	out, _, err := Normalize(pngOf(t, 120, 80))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
}

func TestNormalize_RejectsNonImages(t *testing.T) {
	_, _, err := Normalize([]byte("#!/bin/sh\necho pwned\n"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestNormalize_WebPPassesThrough(t *testing.T) {
	raw := append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)

	out, _, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

// withDeclaredSize rewrites the IHDR chunk of a PNG to claim w×h pixels.
func withDeclaredSize(raw []byte, w, h uint32) []byte {
	out := append([]byte(nil), raw...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalize_RejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	raw := withDeclaredSize(pngOf(t, 4, 4), 60000, 60000)

	_, _, err := Normalize(raw)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
