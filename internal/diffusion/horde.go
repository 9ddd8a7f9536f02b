package diffusion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/opd-ai/horde"
)

// HordeConfig configures the AI Horde backend.
type HordeConfig struct {
	APIKey string
	// Model is a Horde model name; empty selects the library default.
	Model string
}

// hordeFetch submits one job and returns the encoded image bytes.
type hordeFetch func(ctx context.Context, prompt string, params Params) ([]byte, error)

// Horde renders images on the AI Horde distributed cluster.
type Horde struct {
	cfg HordeConfig

	mu    sync.Mutex
	fetch hordeFetch
}

// NewHorde validates cfg and returns an unopened generator.
func NewHorde(cfg HordeConfig) (*Horde, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("horde: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = horde.DefaultModel
	}
	return &Horde{cfg: cfg}, nil
}

// Open builds the Horde client.
func (g *Horde) Open(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetch == nil {
		g.fetch = clientFetch(horde.NewClient(g.cfg.APIKey), g.cfg.Model)
	}
	return nil
}

func clientFetch(client *horde.Client, model string) hordeFetch {
	return func(ctx context.Context, prompt string, params Params) ([]byte, error) {
		req := horde.GenerationRequest{
			Prompt: prompt,
			Params: horde.Params{
				Steps:     params.Steps,
				Width:     params.Width,
				Height:    params.Height,
				ModelName: model,
			},
		}
		resp, err := client.RequestGeneration(req)
		if err != nil {
			return nil, fmt.Errorf("requesting generation: %w", err)
		}
		// The Horde client does not take a context; check between blocking calls.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := client.WaitForCompletion(resp.ID)
		if err != nil {
			return nil, fmt.Errorf("waiting for completion: %w", err)
		}
		if len(status.Generation) == 0 {
			return nil, errors.New("no results returned")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := client.DownloadImage(status.Generation[0].Image)
		if err != nil {
			return nil, fmt.Errorf("downloading image: %w", err)
		}
		return data, nil
	}
}

// Generate submits prompt and waits for the finished image.
func (g *Horde) Generate(ctx context.Context, prompt string, params Params) (*Tensor, error) {
	g.mu.Lock()
	fetch := g.fetch
	g.mu.Unlock()
	if fetch == nil {
		return nil, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Steps <= 0 {
		params.Steps = horde.DefaultSteps
	}
	if params.Width <= 0 {
		params.Width = horde.DefaultWidth
	}
	if params.Height <= 0 {
		params.Height = horde.DefaultHeight
	}
	data, err := fetch(ctx, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("horde: %w", err)
	}
	tensor, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("horde: %w", err)
	}
	return tensor, nil
}

// Close drops the client.
func (g *Horde) Close() error {
	g.mu.Lock()
	g.fetch = nil
	g.mu.Unlock()
	return nil
}
