package main

import (
	"log/slog"
	"time"

	"romscribe/internal/config"
	"romscribe/internal/diffusion"
	"romscribe/internal/metadata"
)

func metadataOptions(cfg *config.Config) (metadata.Options, error) {
	opts := metadata.DefaultOptions()
	opts.ModelPath = cfg.Llama.ModelPath
	opts.GPULayers = cfg.Llama.GPULayers
	opts.ContextSize = cfg.Llama.ContextSize
	if cfg.Metadata.SystemPrompt != "" {
		opts.SystemPrompt = cfg.Metadata.SystemPrompt
	}
	schema, err := cfg.SchemaDocument()
	if err != nil {
		return metadata.Options{}, err
	}
	if schema != nil {
		opts.Schema = schema
	}
	return opts, nil
}

func newMetadataGenerator(cfg *config.Config, logger *slog.Logger) (metadata.Generator, error) {
	opts, err := metadataOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Metadata.Backend == config.MetadataBackendAnthropic {
		gen, err := metadata.NewAnthropic(opts, metadata.AnthropicConfig{
			APIKey: cfg.Metadata.AnthropicKey,
			Model:  cfg.Metadata.AnthropicModel,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	}
	gen, err := metadata.NewLlama(opts, metadata.LlamaServer{
		Binary:         cfg.Llama.ServerBinary,
		Host:           cfg.Llama.Host,
		Port:           cfg.Llama.Port,
		Endpoint:       cfg.Llama.Endpoint,
		StartupTimeout: seconds(cfg.Llama.StartupTimeoutSeconds),
		RequestTimeout: seconds(cfg.Llama.RequestTimeoutSeconds),
	}, logger)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func newImageGenerator(cfg *config.Config, _ *slog.Logger) (diffusion.Generator, error) {
	if cfg.Images.Backend == config.ImageBackendHorde {
		gen, err := diffusion.NewHorde(diffusion.HordeConfig{
			APIKey: cfg.Images.HordeAPIKey,
			Model:  cfg.Images.HordeModel,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	}
	gen, err := diffusion.NewSDWebUI(diffusion.SDWebUIConfig{
		Endpoint: cfg.Images.Endpoint,
		Model:    cfg.Images.Model,
		Revision: cfg.Images.Revision,
		Timeout:  seconds(cfg.Images.TimeoutSeconds),
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func imageParams(cfg *config.Config) diffusion.Params {
	return diffusion.Params{
		Steps:         cfg.Images.Steps,
		Width:         cfg.Images.Width,
		Height:        cfg.Images.Height,
		GuidanceScale: cfg.Images.GuidanceScale,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
