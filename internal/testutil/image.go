// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// PNG returns a small valid PNG image.
func PNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

// GIF returns a small valid GIF image.
func GIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

// WebP returns a 1x1 lossless WebP image.
func WebP(t *testing.T) []byte {
	t.Helper()
	// VP8L header: signature, 14 bit width-1, 14 bit height-1, alpha, version.
	vp8l := []byte{0x2f, 0x00, 0x00, 0x00, 0x00, 0x00}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(vp8l))))
	buf.WriteString("WEBPVP8L")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(vp8l))))
	buf.Write(vp8l)
	return buf.Bytes()
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}
