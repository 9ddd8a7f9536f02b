package artwork

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"romscribe/internal/diffusion"
	"romscribe/internal/fileutil"
)

// DefaultSize is the edge length of written cover art.
const DefaultSize = 512

// Raster converts a diffusion tensor into a size x size opaque RGB image.
// Each value is scaled to [0,255], rounded, and clipped before the
// channel-major data is interleaved. One-channel tensors are treated as
// grayscale; channels past the third are ignored.
func Raster(t *diffusion.Tensor, size int) (*image.RGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Channels != 1 && t.Channels < 3 {
		return nil, fmt.Errorf("unsupported channel count %d", t.Channels)
	}
	if size <= 0 {
		size = DefaultSize
	}

	src := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			off := src.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				ch := c
				if t.Channels == 1 {
					ch = 0
				}
				src.Pix[off+c] = toByte(t.At(ch, y, x))
			}
			src.Pix[off+3] = 0xff
		}
	}
	if t.Width == size && t.Height == size {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func toByte(v float32) uint8 {
	scaled := math.Round(float64(v) * 255)
	switch {
	case math.IsNaN(scaled), scaled < 0:
		return 0
	case scaled > 255:
		return 255
	default:
		return uint8(scaled)
	}
}

// EncodePNG writes img as PNG to w.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNG writes img to path atomically.
func WritePNG(path string, img image.Image) error {
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return EncodePNG(w, img)
	}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
