package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the run's input and output locations.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
}

// Llama contains settings for the local llama.cpp server that backs metadata generation.
type Llama struct {
	ModelPath    string `toml:"model_path"`
	GPULayers    int    `toml:"gpu_layers"`
	ContextSize  int    `toml:"context_size"`
	ServerBinary string `toml:"server_binary"`
	// Endpoint attaches to an already running server instead of launching one.
	Endpoint              string `toml:"endpoint"`
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	StartupTimeoutSeconds int    `toml:"startup_timeout_seconds"`
	// RequestTimeoutSeconds bounds a single generation call. Zero disables the bound.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Metadata contains the prompt contract for metadata generation.
type Metadata struct {
	Backend      string `toml:"backend"`
	SystemPrompt string `toml:"system_prompt"`
	// SchemaPath points at a JSON schema document replacing the built-in one.
	SchemaPath     string `toml:"schema_path"`
	AnthropicKey   string `toml:"anthropic_api_key"`
	AnthropicModel string `toml:"anthropic_model"`
}

// Images contains configuration for the optional cover-art pass.
type Images struct {
	Enabled         bool    `toml:"enabled"`
	Backend         string  `toml:"backend"`
	Endpoint        string  `toml:"endpoint"`
	Model           string  `toml:"model"`
	Revision        string  `toml:"revision"`
	Steps           int     `toml:"steps"`
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	GuidanceScale   float64 `toml:"guidance_scale"`
	OutputSize      int     `toml:"output_size"`
	PromptTemplate  string  `toml:"prompt_template"`
	IsolateFailures bool    `toml:"isolate_failures"`
	HordeAPIKey     string  `toml:"horde_api_key"`
	HordeModel      string  `toml:"horde_model"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Notifications configures run notifications. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for romscribe.
//
// Configuration sections by subsystem:
//   - Paths: ROM input directory and generated output directory
//   - Llama: llama.cpp server launch and connection settings
//   - Metadata: backend choice, system prompt and output schema
//   - Images: cover-art backend, diffusion parameters, failure policy
//   - Notifications: optional ntfy topic for run results
//   - Logging: log format, level, and optional file
type Config struct {
	Paths         Paths         `toml:"paths"`
	Llama         Llama         `toml:"llama"`
	Metadata      Metadata      `toml:"metadata"`
	Images        Images        `toml:"images"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/romscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("romscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Overrides carries command-line values that take precedence over the file.
// Empty strings and nil pointers leave the loaded value untouched.
type Overrides struct {
	ModelPath            string
	InputDir             string
	OutputDir            string
	GPULayers            *int
	Images               *bool
	IsolateImageFailures *bool
	LogLevel             string
	LogFormat            string
}

// Apply merges command-line overrides, re-normalizes, and re-validates.
func (c *Config) Apply(o Overrides) error {
	if v := strings.TrimSpace(o.ModelPath); v != "" {
		c.Llama.ModelPath = v
	}
	if v := strings.TrimSpace(o.InputDir); v != "" {
		c.Paths.InputDir = v
	}
	if v := strings.TrimSpace(o.OutputDir); v != "" {
		c.Paths.OutputDir = v
	}
	if o.GPULayers != nil {
		c.Llama.GPULayers = *o.GPULayers
	}
	if o.Images != nil {
		c.Images.Enabled = *o.Images
	}
	if o.IsolateImageFailures != nil {
		c.Images.IsolateFailures = *o.IsolateImageFailures
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(o.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// SchemaDocument returns the configured schema override, or nil when the
// built-in schema should be used.
func (c *Config) SchemaDocument() ([]byte, error) {
	if c.Metadata.SchemaPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Metadata.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata schema: %w", err)
	}
	return data, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
