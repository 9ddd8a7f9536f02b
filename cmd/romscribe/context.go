package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"romscribe/internal/config"
	"romscribe/internal/diffusion"
	"romscribe/internal/metadata"
)

type metadataFactory func(cfg *config.Config, logger *slog.Logger) (metadata.Generator, error)

type imageFactory func(cfg *config.Config, logger *slog.Logger) (diffusion.Generator, error)

type commandContext struct {
	flags *runFlags

	newMetadata metadataFactory
	newImages   imageFactory

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{
		flags:       &runFlags{},
		newMetadata: newMetadataGenerator,
		newImages:   newImageGenerator,
	}
}

// ensureConfig loads the file once and layers explicitly set flags on top.
// Flags left at their defaults never override the file.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Apply(c.overrides(cmd)); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) overrides(cmd *cobra.Command) config.Overrides {
	flags := cmd.Flags()
	o := config.Overrides{
		ModelPath: c.flags.modelPath,
		InputDir:  c.flags.inputDir,
		OutputDir: c.flags.outDir,
		LogLevel:  c.flags.logLevel,
		LogFormat: c.flags.logFormat,
	}
	if flags.Changed("gpuLayers") {
		o.GPULayers = &c.flags.gpuLayers
	}
	if flags.Changed("images") {
		o.Images = &c.flags.images
	}
	if flags.Changed("isolate-image-failures") {
		o.IsolateImageFailures = &c.flags.isolateImageFailures
	}
	return o
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
