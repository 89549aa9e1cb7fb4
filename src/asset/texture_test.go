package asset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckerboard(t *testing.T) {
	tex := Checkerboard(64, 4)
	require.Equal(t, uint32(64), tex.Width)
	require.Equal(t, uint32(64), tex.Height)
	require.Len(t, tex.Pixels, 64*64*4)

	// Opaque everywhere, and the two tones actually alternate.
	for i := 3; i < len(tex.Pixels); i += 4 {
		require.Equal(t, byte(0xff), tex.Pixels[i])
	}
	require.NotEqual(t, tex.Pixels[0], tex.Pixels[16*4],
		"adjacent cells use different tones")
}

func TestCheckerboardDefaults(t *testing.T) {
	tex := Checkerboard(0, 0)
	require.Equal(t, uint32(256), tex.Width)
	require.Len(t, tex.Pixels, 256*256*4)
}

func TestLoadTexture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff})

	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	tex, err := LoadTexture(path)
	require.NoError(t, err)
	require.Equal(t, uint32(3), tex.Width)
	require.Equal(t, uint32(2), tex.Height)
	require.Len(t, tex.Pixels, 3*2*4)
	require.Equal(t, byte(0x12), tex.Pixels[0])
	require.Equal(t, byte(0x34), tex.Pixels[1])
}

func TestLoadTextureMissing(t *testing.T) {
	_, err := LoadTexture(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}
