package config

const (
	MetadataBackendLlama     = "llama"
	MetadataBackendAnthropic = "anthropic"

	ImageBackendSDWebUI = "sdwebui"
	ImageBackendHorde   = "horde"
)

const (
	defaultGPULayers             = 1
	defaultContextSize           = 4096
	defaultServerBinary          = "llama-server"
	defaultLlamaHost             = "127.0.0.1"
	defaultLlamaPort             = 8089
	defaultStartupTimeoutSeconds = 180
	defaultAnthropicModel        = "claude-3-5-sonnet-latest"
	defaultImageEndpoint         = "http://127.0.0.1:7860"
	defaultImageModel            = "stabilityai/stable-diffusion-2-1"
	defaultImageRevision         = "fp16"
	defaultImageSteps            = 30
	defaultImageSize             = 768
	defaultGuidanceScale         = 7.5
	defaultOutputSize            = 512
	defaultImageTimeoutSeconds   = 600
	defaultPromptTemplate        = "Box art for the video game {name}. {desc}"
	defaultNtfyTimeoutSeconds    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Llama: Llama{
			GPULayers:             defaultGPULayers,
			ContextSize:           defaultContextSize,
			ServerBinary:          defaultServerBinary,
			Host:                  defaultLlamaHost,
			Port:                  defaultLlamaPort,
			StartupTimeoutSeconds: defaultStartupTimeoutSeconds,
		},
		Metadata: Metadata{
			Backend:        MetadataBackendLlama,
			AnthropicModel: defaultAnthropicModel,
		},
		Images: Images{
			Backend:        ImageBackendSDWebUI,
			Endpoint:       defaultImageEndpoint,
			Model:          defaultImageModel,
			Revision:       defaultImageRevision,
			Steps:          defaultImageSteps,
			Width:          defaultImageSize,
			Height:         defaultImageSize,
			GuidanceScale:  defaultGuidanceScale,
			OutputSize:     defaultOutputSize,
			PromptTemplate: defaultPromptTemplate,
			TimeoutSeconds: defaultImageTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
