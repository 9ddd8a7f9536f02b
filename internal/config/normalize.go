package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLlama(); err != nil {
		return err
	}
	if err := c.normalizeMetadata(); err != nil {
		return err
	}
	c.normalizeImages()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLlama() error {
	var err error
	if c.Llama.ModelPath, err = expandPath(strings.TrimSpace(c.Llama.ModelPath)); err != nil {
		return fmt.Errorf("llama.model_path: %w", err)
	}
	c.Llama.ServerBinary = strings.TrimSpace(c.Llama.ServerBinary)
	if value, ok := os.LookupEnv("ROMSCRIBE_LLAMA_BINARY"); ok && c.Llama.ServerBinary == defaultServerBinary {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			c.Llama.ServerBinary = trimmed
		}
	}
	if c.Llama.ServerBinary == "" {
		c.Llama.ServerBinary = defaultServerBinary
	}
	c.Llama.Endpoint = strings.TrimRight(strings.TrimSpace(c.Llama.Endpoint), "/")
	c.Llama.Host = strings.TrimSpace(c.Llama.Host)
	if c.Llama.Host == "" {
		c.Llama.Host = defaultLlamaHost
	}
	if c.Llama.ContextSize == 0 {
		c.Llama.ContextSize = defaultContextSize
	}
	return nil
}

func (c *Config) normalizeMetadata() error {
	c.Metadata.Backend = strings.ToLower(strings.TrimSpace(c.Metadata.Backend))
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = MetadataBackendLlama
	}
	if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Metadata.AnthropicKey = strings.TrimSpace(value)
	}
	c.Metadata.AnthropicModel = strings.TrimSpace(c.Metadata.AnthropicModel)
	if c.Metadata.AnthropicModel == "" {
		c.Metadata.AnthropicModel = defaultAnthropicModel
	}
	var err error
	if c.Metadata.SchemaPath, err = expandPath(strings.TrimSpace(c.Metadata.SchemaPath)); err != nil {
		return fmt.Errorf("metadata.schema_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeImages() {
	c.Images.Backend = strings.ToLower(strings.TrimSpace(c.Images.Backend))
	if c.Images.Backend == "" {
		c.Images.Backend = ImageBackendSDWebUI
	}
	if value, ok := os.LookupEnv("SD_WEBUI_URL"); ok && strings.TrimSpace(value) != "" && c.Images.Endpoint == defaultImageEndpoint {
		c.Images.Endpoint = strings.TrimSpace(value)
	}
	c.Images.Endpoint = strings.TrimRight(strings.TrimSpace(c.Images.Endpoint), "/")
	if value, ok := os.LookupEnv("HORDE_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Images.HordeAPIKey = strings.TrimSpace(value)
	}
	c.Images.Model = strings.TrimSpace(c.Images.Model)
	c.Images.HordeModel = strings.TrimSpace(c.Images.HordeModel)
	c.Images.Revision = strings.TrimSpace(c.Images.Revision)
	if strings.TrimSpace(c.Images.PromptTemplate) == "" {
		c.Images.PromptTemplate = defaultPromptTemplate
	}
	if c.Images.OutputSize == 0 {
		c.Images.OutputSize = defaultOutputSize
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
