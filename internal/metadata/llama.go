package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"romscribe/internal/gamelist"
	"romscribe/internal/logging"
	"romscribe/internal/services/llama"
	"romscribe/internal/services/llm"
)

// LlamaServer describes how the llama backend reaches llama-server.
type LlamaServer struct {
	Binary         string
	Host           string
	Port           int
	Endpoint       string
	StartupTimeout time.Duration
	// RequestTimeout bounds a single completion. Zero means unbounded.
	RequestTimeout time.Duration
}

// Llama generates metadata with a local llama-server under a JSON-schema
// response format.
type Llama struct {
	opts       Options
	serverCfg  LlamaServer
	serverOpts []llama.Option
	logger     *slog.Logger
	decoder    *decoder

	mu     sync.Mutex
	server *llama.Server
	client *llm.Client
}

// NewLlama validates opts and returns an unopened generator.
func NewLlama(opts Options, server LlamaServer, logger *slog.Logger, serverOpts ...llama.Option) (*Llama, error) {
	opts = opts.withDefaults()
	if server.Endpoint == "" && opts.ModelPath == "" {
		return nil, fmt.Errorf("metadata llama: model path required")
	}
	dec, err := newDecoder(opts.Schema)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Llama{
		opts:       opts,
		serverCfg:  server,
		serverOpts: serverOpts,
		logger:     logger,
		decoder:    dec,
	}, nil
}

// Open starts (or attaches to) the server and waits for the model to load.
func (g *Llama) Open(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.server != nil {
		return fmt.Errorf("metadata llama: already open")
	}
	opts := append([]llama.Option{llama.WithLogger(g.logger)}, g.serverOpts...)
	server, err := llama.New(llama.Config{
		Binary:         g.serverCfg.Binary,
		ModelPath:      g.opts.ModelPath,
		ContextSize:    g.opts.ContextSize,
		GPULayers:      g.opts.GPULayers,
		Host:           g.serverCfg.Host,
		Port:           g.serverCfg.Port,
		Endpoint:       g.serverCfg.Endpoint,
		StartupTimeout: g.serverCfg.StartupTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("metadata llama: %w", err)
	}
	g.logger.Info("loading model", logging.String("model", g.opts.ModelPath))
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("metadata llama: load model: %w", err)
	}
	g.logger.Info("loaded model", logging.String("model", g.opts.ModelPath))
	g.server = server
	g.client = llm.NewClient(llm.Config{
		BaseURL:        server.CompletionsURL(),
		TimeoutSeconds: int(g.serverCfg.RequestTimeout / time.Second),
	})
	return nil
}

// Generate asks the model for the record described by label.
func (g *Llama) Generate(ctx context.Context, label string) (gamelist.Game, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return gamelist.Game{}, ErrNotOpen
	}
	raw, err := client.CompleteSchema(ctx, g.opts.SystemPrompt, label, "game", g.opts.Schema)
	if err != nil {
		return gamelist.Game{}, &GenerationError{Label: label, Err: err}
	}
	return g.decoder.decode(label, raw)
}

// Close stops the server. Later calls are no-ops.
func (g *Llama) Close() error {
	g.mu.Lock()
	server := g.server
	g.server = nil
	g.client = nil
	g.mu.Unlock()
	if server == nil {
		return nil
	}
	if err := server.Stop(); err != nil {
		return fmt.Errorf("metadata llama: stop server: %w", err)
	}
	return nil
}
