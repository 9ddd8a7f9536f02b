package diffusion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	txt2imgPath = "/sdapi/v1/txt2img"
	optionsPath = "/sdapi/v1/options"
	modelsPath  = "/sdapi/v1/sd-models"
)

// SDWebUIConfig points at a Stable Diffusion WebUI instance started with --api.
type SDWebUIConfig struct {
	Endpoint string
	// Model names the checkpoint to load. Only the last path segment of a
	// hub-style id ("stabilityai/stable-diffusion-2-1") is matched.
	Model string
	// Revision must appear in the checkpoint title when set, e.g. "fp16".
	Revision string
	Timeout  time.Duration
}

// SDWebUI renders images through the WebUI txt2img API.
type SDWebUI struct {
	cfg        SDWebUIConfig
	httpClient *http.Client

	mu         sync.Mutex
	open       bool
	checkpoint string
}

type sdModel struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Filename  string `json:"filename"`
}

type sdWebUIRequest struct {
	Prompt           string         `json:"prompt"`
	NegativePrompt   string         `json:"negative_prompt,omitempty"`
	Steps            int            `json:"steps"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	CFGScale         float64        `json:"cfg_scale,omitempty"`
	BatchSize        int            `json:"batch_size,omitempty"`
	OverrideSettings map[string]any `json:"override_settings,omitempty"`
}

type sdWebUIResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
	Error  string   `json:"error,omitempty"`
}

// NewSDWebUI validates cfg and returns an unopened generator.
func NewSDWebUI(cfg SDWebUIConfig) (*SDWebUI, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		return nil, errors.New("sdwebui: endpoint required")
	}
	return &SDWebUI{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Ping checks that the API answers.
func (g *SDWebUI) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+optionsPath, nil)
	if err != nil {
		return fmt.Errorf("sdwebui: new request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sdwebui: unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sdwebui: options returned http %d", resp.StatusCode)
	}
	return nil
}

// Open verifies the API is reachable and, when a model is configured,
// resolves it to an installed checkpoint and makes it the active one.
func (g *SDWebUI) Open(ctx context.Context) error {
	if err := g.Ping(ctx); err != nil {
		return err
	}
	var checkpoint string
	if strings.TrimSpace(g.cfg.Model) != "" {
		models, err := g.listModels(ctx)
		if err != nil {
			return err
		}
		checkpoint, err = resolveCheckpoint(models, g.cfg.Model, g.cfg.Revision)
		if err != nil {
			return err
		}
		if err := g.selectCheckpoint(ctx, checkpoint); err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.open = true
	g.checkpoint = checkpoint
	g.mu.Unlock()
	return nil
}

func (g *SDWebUI) listModels(ctx context.Context) ([]sdModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+modelsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: new request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: list models: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: read models: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sdwebui: sd-models returned http %d", resp.StatusCode)
	}
	var models []sdModel
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("sdwebui: unmarshal models: %w", err)
	}
	return models, nil
}

func (g *SDWebUI) selectCheckpoint(ctx context.Context, title string) error {
	encoded, err := json.Marshal(map[string]string{"sd_model_checkpoint": title})
	if err != nil {
		return fmt.Errorf("sdwebui: marshal options: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint+optionsPath, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("sdwebui: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sdwebui: select checkpoint: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sdwebui: selecting %q returned http %d", title, resp.StatusCode)
	}
	return nil
}

// resolveCheckpoint picks the first installed checkpoint whose title or
// model name contains the model id, narrowed to titles carrying revision.
func resolveCheckpoint(models []sdModel, model, revision string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	rev := strings.ToLower(strings.TrimSpace(revision))
	matched := false
	for _, m := range models {
		title := strings.ToLower(m.Title)
		if !strings.Contains(title, key) && !strings.Contains(strings.ToLower(m.ModelName), key) {
			continue
		}
		matched = true
		if rev == "" || strings.Contains(title, rev) || strings.Contains(strings.ToLower(m.Filename), rev) {
			return m.Title, nil
		}
	}
	if matched {
		return "", fmt.Errorf("sdwebui: model %q has no checkpoint with revision %q", model, revision)
	}
	return "", fmt.Errorf("sdwebui: model %q is not installed", model)
}

// Generate renders prompt and returns the first image of the batch.
func (g *SDWebUI) Generate(ctx context.Context, prompt string, params Params) (*Tensor, error) {
	g.mu.Lock()
	open, checkpoint := g.open, g.checkpoint
	g.mu.Unlock()
	if !open {
		return nil, ErrNotOpen
	}
	payload := sdWebUIRequest{
		Prompt:         prompt,
		NegativePrompt: params.NegativePrompt,
		Steps:          params.Steps,
		Width:          params.Width,
		Height:         params.Height,
		CFGScale:       params.GuidanceScale,
		BatchSize:      1,
	}
	if checkpoint != "" {
		payload.OverrideSettings = map[string]any{"sd_model_checkpoint": checkpoint}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint+txt2imgPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("sdwebui: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sdwebui: unexpected status code %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed sdWebUIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("sdwebui: unmarshal response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("sdwebui: %s", parsed.Error)
	}
	if len(parsed.Images) == 0 {
		return nil, errors.New("sdwebui: no images generated")
	}
	data, err := base64.StdEncoding.DecodeString(parsed.Images[0])
	if err != nil {
		return nil, fmt.Errorf("sdwebui: decode base64: %w", err)
	}
	tensor, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("sdwebui: %w", err)
	}
	return tensor, nil
}

// Close marks the generator closed. The WebUI process is not ours to stop.
func (g *SDWebUI) Close() error {
	g.mu.Lock()
	g.open = false
	g.checkpoint = ""
	g.mu.Unlock()
	return nil
}
