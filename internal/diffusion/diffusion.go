package diffusion

import (
	"context"
	"errors"
)

// ErrNotOpen reports a Generate call outside the Open/Close window.
var ErrNotOpen = errors.New("image generator is not open")

// Params are the per-image generation settings.
type Params struct {
	Steps          int
	Width          int
	Height         int
	GuidanceScale  float64
	NegativePrompt string
}

// DefaultParams returns 30 steps at 768x768 with guidance 7.5 and no
// negative prompt.
func DefaultParams() Params {
	return Params{
		Steps:         30,
		Width:         768,
		Height:        768,
		GuidanceScale: 7.5,
	}
}

// Generator renders one image per prompt. Open loads the pipeline, Close
// releases it. Close is safe to call more than once.
type Generator interface {
	Open(ctx context.Context) error
	Generate(ctx context.Context, prompt string, params Params) (*Tensor, error)
	Close() error
}
