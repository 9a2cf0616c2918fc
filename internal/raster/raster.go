package raster

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	"loom/internal/services"
)

// DefaultSize is the square raster edge used when the configuration does not
// override it.
const DefaultSize = 256

// placeholderGray is the uniform channel value of a placeholder raster.
const placeholderGray = 128

// Len returns the byte length of a size×size raw RGB raster.
func Len(size int) int {
	return size * size * 3
}

// Load reads an image file and returns it as a size×size raw RGB raster.
// Any open or decode failure is reported as an image-decode error so the
// caller can downgrade the step to a placeholder and continue.
func Load(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrImageDecode, "raster", "load", fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()
	data, err := Decode(f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Decode decodes one image from r and resamples it to a size×size raw RGB
// raster, 3 bytes per pixel in row-major order.
func Decode(r io.Reader, size int) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, services.Wrap(services.ErrImageDecode, "raster", "decode", "decode image", err)
	}
	return Flatten(img, size), nil
}

// Flatten resamples an already-decoded image to the square raster shape and
// strips the alpha channel. Non-square sources are stretched to fit; the
// dataset trades aspect ratio for a uniform array shape.
func Flatten(img image.Image, size int) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]byte, Len(size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			src := dst.PixOffset(x, y)
			pos := (y*size + x) * 3
			out[pos] = dst.Pix[src]
			out[pos+1] = dst.Pix[src+1]
			out[pos+2] = dst.Pix[src+2]
		}
	}
	return out
}

// Placeholder returns the uniform mid-gray raster substituted for steps
// without a usable image. It has the same shape as a real raster, so array
// shapes stay uniform across the dataset.
func Placeholder(size int) []byte {
	out := make([]byte, Len(size))
	for i := range out {
		out[i] = placeholderGray
	}
	return out
}
