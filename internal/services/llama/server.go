package llama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"romscribe/internal/logging"
)

const (
	defaultPollInterval   = 500 * time.Millisecond
	defaultStartupTimeout = 3 * time.Minute
	completionsPath       = "/v1/chat/completions"
	healthPath            = "/health"
)

// ErrNotReady reports that the server answered but is still loading the model.
var ErrNotReady = errors.New("llama server not ready")

// Config describes how to reach or launch llama-server.
type Config struct {
	Binary      string
	ModelPath   string
	ContextSize int
	GPULayers   int
	Host        string
	Port        int
	// Endpoint attaches to an existing server; nothing is launched.
	Endpoint       string
	StartupTimeout time.Duration
}

// Option configures the server.
type Option func(*Server)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Server) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithHTTPClient overrides the client used for health probes.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger routes server output and lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPollInterval overrides the readiness probe interval.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// Server manages the lifetime of one llama-server instance.
type Server struct {
	cfg          Config
	exec         Executor
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	baseURL      string

	mu   sync.Mutex
	proc Process
}

// New validates cfg and constructs a server handle. Nothing is started.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	cfg.ModelPath = strings.TrimSpace(cfg.ModelPath)
	if cfg.Endpoint == "" {
		if cfg.Binary == "" {
			return nil, errors.New("llama server binary required")
		}
		if cfg.ModelPath == "" {
			return nil, errors.New("llama model path required")
		}
		if cfg.Port <= 0 {
			return nil, errors.New("llama server port required")
		}
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	s := &Server{
		cfg:          cfg,
		exec:         commandExecutor{},
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		logger:       logging.NewNop(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Endpoint != "" {
		s.baseURL = cfg.Endpoint
	} else {
		host := cfg.Host
		if host == "" {
			host = "127.0.0.1"
		}
		s.baseURL = "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	}
	return s, nil
}

// Args returns the command-line arguments used to launch the server.
func (s *Server) Args() []string {
	host := s.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return []string{
		"-m", s.cfg.ModelPath,
		"-c", strconv.Itoa(s.cfg.ContextSize),
		"-ngl", strconv.Itoa(s.cfg.GPULayers),
		"--host", host,
		"--port", strconv.Itoa(s.cfg.Port),
	}
}

// BaseURL returns the server root URL.
func (s *Server) BaseURL() string { return s.baseURL }

// CompletionsURL returns the OpenAI-compatible chat completion endpoint.
func (s *Server) CompletionsURL() string { return s.baseURL + completionsPath }

// Start launches the server (unless attaching to an endpoint) and blocks
// until it reports healthy, the startup timeout elapses, or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.proc != nil {
		s.mu.Unlock()
		return errors.New("llama server already started")
	}
	var exited <-chan struct{}
	if s.cfg.Endpoint == "" {
		args := s.Args()
		s.logger.Info("starting llama server",
			logging.String("binary", s.cfg.Binary),
			logging.String("model", s.cfg.ModelPath),
			logging.Int("context_size", s.cfg.ContextSize),
			logging.Int("gpu_layers", s.cfg.GPULayers),
			logging.String("url", s.baseURL),
		)
		proc, err := s.exec.Start(ctx, s.cfg.Binary, args, func(line string) {
			s.logger.Debug(line, logging.String("source", "llama-server"))
		})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("launch %s: %w", s.cfg.Binary, err)
		}
		s.proc = proc
		exited = proc.Done()
	} else {
		s.logger.Info("attaching to llama server", logging.String("url", s.baseURL))
	}
	s.mu.Unlock()

	if err := s.waitReady(ctx, exited); err != nil {
		_ = s.Stop()
		return err
	}
	s.logger.Info("llama server ready", logging.String("url", s.baseURL))
	return nil
}

func (s *Server) waitReady(ctx context.Context, exited <-chan struct{}) error {
	deadline := time.NewTimer(s.cfg.StartupTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		lastErr = s.Health(ctx)
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return fmt.Errorf("llama server exited during startup: %w", s.exitErr())
		case <-deadline.C:
			return fmt.Errorf("llama server not healthy after %s: %w", s.cfg.StartupTimeout, lastErr)
		case <-ticker.C:
		}
	}
}

func (s *Server) exitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.proc.Err() == nil {
		return errors.New("exit status 0")
	}
	return s.proc.Err()
}

// Health probes the server's health endpoint once. A loading server returns
// ErrNotReady.
func (s *Server) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return ErrNotReady
	default:
		return fmt.Errorf("health probe: http %d", resp.StatusCode)
	}
}

// Stop terminates a launched server and releases its memory. Attached
// servers are left running. Stop is idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()
	if proc == nil {
		return nil
	}
	s.logger.Info("stopping llama server", logging.String("url", s.baseURL))
	if err := proc.Stop(); err != nil {
		return err
	}
	return nil
}
