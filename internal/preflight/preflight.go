package preflight

import (
	"context"

	"romscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg. Image checks only run when
// images are enabled; llama checks only run for the llama backend.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckConfig(cfg),
		CheckInputDirectory("Input directory", cfg.Paths.InputDir),
		CheckOutputParent("Output directory", cfg.Paths.OutputDir),
	}

	switch cfg.Metadata.Backend {
	case config.MetadataBackendLlama:
		if cfg.Llama.Endpoint != "" {
			results = append(results, CheckLlamaEndpoint(ctx, "llama.cpp server", cfg.Llama.Endpoint))
		} else {
			results = append(results,
				CheckBinary("llama.cpp server", cfg.Llama.ServerBinary),
				CheckModelFile("Model file", cfg.Llama.ModelPath),
			)
		}
	case config.MetadataBackendAnthropic:
		results = append(results, CheckAPIKey("Anthropic API", cfg.Metadata.AnthropicKey, "ANTHROPIC_API_KEY"))
	}

	if cfg.Images.Enabled {
		switch cfg.Images.Backend {
		case config.ImageBackendSDWebUI:
			results = append(results, CheckSDWebUI(ctx, "Stable Diffusion WebUI", cfg.Images.Endpoint))
		case config.ImageBackendHorde:
			results = append(results, CheckAPIKey("AI Horde", cfg.Images.HordeAPIKey, "HORDE_API_KEY"))
		}
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
