package diffusion

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for backend payloads
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Tensor is one image of a diffusion batch in channel-major (CHW) layout.
// Values are nominally in [0,1]; consumers clip.
type Tensor struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor(channels, height, width int) *Tensor {
	return &Tensor{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// At returns the value for channel c at row y, column x.
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// Set stores v for channel c at row y, column x.
func (t *Tensor) Set(c, y, x int, v float32) {
	t.Data[(c*t.Height+y)*t.Width+x] = v
}

// Validate checks the shape against the backing slice.
func (t *Tensor) Validate() error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if t.Channels <= 0 || t.Height <= 0 || t.Width <= 0 {
		return fmt.Errorf("invalid tensor shape %dx%dx%d", t.Channels, t.Height, t.Width)
	}
	if len(t.Data) != t.Channels*t.Height*t.Width {
		return fmt.Errorf("tensor data length %d does not match shape %dx%dx%d", len(t.Data), t.Channels, t.Height, t.Width)
	}
	return nil
}

// FromImage converts img to a 3-channel tensor scaled to [0,1].
func FromImage(img image.Image) *Tensor {
	b := img.Bounds()
	t := NewTensor(3, b.Dy(), b.Dx())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			t.Set(0, y, x, float32(r)/0xffff)
			t.Set(1, y, x, float32(g)/0xffff)
			t.Set(2, y, x, float32(bl)/0xffff)
		}
	}
	return t
}

// DecodeImage decodes a PNG, JPEG, or WebP payload into a tensor.
func DecodeImage(data []byte) (*Tensor, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}
