package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"romscribe/internal/gamelist"
)

const anthropicMaxTokens = 4096

// AnthropicConfig selects the Claude model and credentials.
type AnthropicConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API host; empty uses the SDK default.
	BaseURL string
}

// Anthropic generates metadata through the Claude messages API. The schema
// travels in the system prompt and the response passes through the same
// schema check as the llama backend.
type Anthropic struct {
	opts    Options
	cfg     AnthropicConfig
	decoder *decoder
	system  string

	mu     sync.Mutex
	client *anthropic.Client
}

// NewAnthropic validates cfg and returns an unopened generator.
func NewAnthropic(opts Options, cfg AnthropicConfig) (*Anthropic, error) {
	opts = opts.withDefaults()
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("metadata anthropic: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = string(anthropic.ModelClaude3_5SonnetLatest)
	}
	dec, err := newDecoder(opts.Schema)
	if err != nil {
		return nil, err
	}
	system := opts.SystemPrompt + "\n\nRespond with a single JSON object and nothing else. It must validate against this JSON schema:\n" + string(opts.Schema)
	return &Anthropic{opts: opts, cfg: cfg, decoder: dec, system: system}, nil
}

// Open builds the API client. No request is made.
func (g *Anthropic) Open(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return errors.New("metadata anthropic: already open")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(g.cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if g.cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(g.cfg.BaseURL))
	}
	g.client = anthropic.NewClient(reqOpts...)
	return nil
}

// Generate asks Claude for the record described by label.
func (g *Anthropic) Generate(ctx context.Context, label string) (gamelist.Game, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return gamelist.Game{}, ErrNotOpen
	}
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(g.cfg.Model)),
		MaxTokens: anthropic.F(int64(anthropicMaxTokens)),
		System: anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(g.system),
		}),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(label)),
		}),
	})
	if err != nil {
		return gamelist.Game{}, &GenerationError{Label: label, Err: fmt.Errorf("claude api error: %w", err)}
	}
	var text string
	for _, block := range message.Content {
		if strings.TrimSpace(block.Text) != "" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return gamelist.Game{}, &GenerationError{Label: label, Err: errors.New("empty response from claude")}
	}
	return g.decoder.decode(label, text)
}

// Close drops the client. Later calls are no-ops.
func (g *Anthropic) Close() error {
	g.mu.Lock()
	g.client = nil
	g.mu.Unlock()
	return nil
}
