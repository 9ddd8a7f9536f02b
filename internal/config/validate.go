package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLlama(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" && c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	return c.validateLogging()
}

// ValidateRun checks the fields a generation run cannot start without.
// Validate alone accepts an empty config so `config validate` works before
// paths are known.
func (c *Config) ValidateRun() error {
	if c.Paths.InputDir == "" {
		return errors.New("input directory is required (--inputDir or paths.input_dir)")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("output directory is required (--outDir or paths.output_dir)")
	}
	if within(c.Paths.InputDir, c.Paths.OutputDir) {
		return errors.New("output directory must not contain the input directory; it is deleted on every run")
	}
	switch c.Metadata.Backend {
	case MetadataBackendLlama:
		if c.Llama.ModelPath == "" && c.Llama.Endpoint == "" {
			return errors.New("model path is required (--modelPath or llama.model_path)")
		}
	case MetadataBackendAnthropic:
		if c.Metadata.AnthropicKey == "" {
			return errors.New("metadata.anthropic_api_key is required when metadata.backend is anthropic (or set ANTHROPIC_API_KEY)")
		}
	}
	if c.Images.Enabled && c.Images.Backend == ImageBackendHorde && c.Images.HordeAPIKey == "" {
		return errors.New("images.horde_api_key is required when images.backend is horde (or set HORDE_API_KEY)")
	}
	return nil
}

func (c *Config) validateLlama() error {
	if c.Llama.GPULayers < 0 {
		return errors.New("llama.gpu_layers must not be negative")
	}
	if err := ensurePositiveMap(map[string]int{
		"llama.context_size":            c.Llama.ContextSize,
		"llama.startup_timeout_seconds": c.Llama.StartupTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Llama.Endpoint == "" && (c.Llama.Port <= 0 || c.Llama.Port > 65535) {
		return fmt.Errorf("llama.port must be between 1 and 65535, got %d", c.Llama.Port)
	}
	if c.Llama.RequestTimeoutSeconds < 0 {
		return errors.New("llama.request_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.Backend {
	case MetadataBackendLlama, MetadataBackendAnthropic:
	default:
		return fmt.Errorf("metadata.backend: unsupported value %q (want %s or %s)", c.Metadata.Backend, MetadataBackendLlama, MetadataBackendAnthropic)
	}
	schema, err := c.SchemaDocument()
	if err != nil {
		return err
	}
	if schema != nil {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema)); err != nil {
			return fmt.Errorf("metadata.schema_path: invalid JSON schema: %w", err)
		}
	}
	return nil
}

func (c *Config) validateImages() error {
	switch c.Images.Backend {
	case ImageBackendSDWebUI, ImageBackendHorde:
	default:
		return fmt.Errorf("images.backend: unsupported value %q (want %s or %s)", c.Images.Backend, ImageBackendSDWebUI, ImageBackendHorde)
	}
	if err := ensurePositiveMap(map[string]int{
		"images.steps":           c.Images.Steps,
		"images.width":           c.Images.Width,
		"images.height":          c.Images.Height,
		"images.output_size":     c.Images.OutputSize,
		"images.timeout_seconds": c.Images.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Images.GuidanceScale <= 0 {
		return errors.New("images.guidance_scale must be positive")
	}
	if c.Images.Enabled && c.Images.Backend == ImageBackendSDWebUI && c.Images.Endpoint == "" {
		return errors.New("images.endpoint must be set when images.backend is sdwebui")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// within reports whether path is dir or lies beneath it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
