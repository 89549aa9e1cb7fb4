package asset

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// TextureData is decoded RGBA pixel data, tightly packed row-major.
type TextureData struct {
	Pixels []byte
	Width  uint32
	Height uint32
}

// LoadTexture decodes an image file into RGBA pixels.
func LoadTexture(path string) (*TextureData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", path, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return &TextureData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// Checkerboard generates a two-tone test texture so the renderer can
// run without any asset files on disk.
func Checkerboard(size, cells uint32) *TextureData {
	if size == 0 {
		size = 256
	}
	if cells == 0 {
		cells = 8
	}
	cell := size / cells
	if cell == 0 {
		cell = 1
	}

	pixels := make([]byte, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			i := (y*size + x) * 4
			if (x/cell+y/cell)%2 == 0 {
				pixels[i+0] = 0xe0
				pixels[i+1] = 0xe0
				pixels[i+2] = 0xe0
			} else {
				pixels[i+0] = 0x30
				pixels[i+1] = 0x30
				pixels[i+2] = 0x38
			}
			pixels[i+3] = 0xff
		}
	}
	return &TextureData{Pixels: pixels, Width: size, Height: size}
}
