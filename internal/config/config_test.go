package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"romscribe/internal/config"
)

func TestLoadDefaultConfigWhenFileMissing(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "romscribe", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Llama.GPULayers != 1 {
		t.Fatalf("expected default gpu layers 1, got %d", cfg.Llama.GPULayers)
	}
	if cfg.Llama.ContextSize != 4096 {
		t.Fatalf("expected default context size 4096, got %d", cfg.Llama.ContextSize)
	}
	if cfg.Images.Enabled {
		t.Fatal("expected images disabled by default")
	}
	if cfg.Images.IsolateFailures {
		t.Fatal("expected image failures to abort by default")
	}
	if cfg.Images.Steps != 30 || cfg.Images.Width != 768 || cfg.Images.Height != 768 || cfg.Images.GuidanceScale != 7.5 {
		t.Fatalf("unexpected diffusion defaults: %+v", cfg.Images)
	}
	if cfg.Images.OutputSize != 512 {
		t.Fatalf("expected output size 512, got %d", cfg.Images.OutputSize)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "romscribe.toml")

	type payload struct {
		Paths struct {
			InputDir  string `toml:"input_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Llama struct {
			ModelPath string `toml:"model_path"`
			GPULayers int    `toml:"gpu_layers"`
		} `toml:"llama"`
		Images struct {
			Enabled bool   `toml:"enabled"`
			Backend string `toml:"backend"`
		} `toml:"images"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "roms")
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Llama.ModelPath = filepath.Join(tempDir, "model.gguf")
	custom.Llama.GPULayers = 33
	custom.Images.Enabled = true
	custom.Images.Backend = "SDWebUI"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Llama.GPULayers != 33 {
		t.Fatalf("expected gpu layers 33, got %d", cfg.Llama.GPULayers)
	}
	if cfg.Images.Backend != config.ImageBackendSDWebUI {
		t.Fatalf("expected backend to be normalized, got %q", cfg.Images.Backend)
	}
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun returned error: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "romscribe.toml")
	if err := os.WriteFile(configPath, []byte("[llama]\ngpu_layerz = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "romscribe.toml")
	content := "[metadata]\nanthropic_api_key = \"file-key\"\n[images]\nhorde_api_key = \"file-horde\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("HORDE_API_KEY", "env-horde")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Metadata.AnthropicKey != "env-key" {
		t.Fatalf("expected env anthropic key, got %q", cfg.Metadata.AnthropicKey)
	}
	if cfg.Images.HordeAPIKey != "env-horde" {
		t.Fatalf("expected env horde key, got %q", cfg.Images.HordeAPIKey)
	}
}

func TestApplyOverridesFlags(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	layers := 12
	images := true
	isolate := true

	err := cfg.Apply(config.Overrides{
		ModelPath:            filepath.Join(dir, "model.gguf"),
		InputDir:             filepath.Join(dir, "roms"),
		OutputDir:            filepath.Join(dir, "out"),
		GPULayers:            &layers,
		Images:               &images,
		IsolateImageFailures: &isolate,
		LogLevel:             "DEBUG",
	})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if cfg.Llama.GPULayers != 12 || !cfg.Images.Enabled || !cfg.Images.IsolateFailures {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized log level, got %q", cfg.Logging.Level)
	}
	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("ValidateRun returned error: %v", err)
	}
}

func TestValidateRunRequiresPaths(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateRun()
	if err == nil || !strings.Contains(err.Error(), "input directory") {
		t.Fatalf("expected input directory error, got %v", err)
	}
}

func TestValidateRunRejectsSameInputAndOutput(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	if err := cfg.Apply(config.Overrides{InputDir: dir, OutputDir: dir, ModelPath: filepath.Join(dir, "m.gguf")}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if err := cfg.ValidateRun(); err == nil {
		t.Fatal("expected same input/output directories to be rejected")
	}
}

func TestValidateRunRejectsInputInsideOutput(t *testing.T) {
	root := t.TempDir()
	cases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "nested input", input: filepath.Join(root, "out", "roms"), wantErr: true},
		{name: "sibling with shared prefix", input: filepath.Join(root, "out-roms")},
		{name: "dot-dot prefixed name", input: filepath.Join(root, "out", "..roms"), wantErr: true},
		{name: "output inside input", input: root},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			overrides := config.Overrides{
				InputDir:  tc.input,
				OutputDir: filepath.Join(root, "out"),
				ModelPath: filepath.Join(root, "m.gguf"),
			}
			if err := cfg.Apply(overrides); err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			err := cfg.ValidateRun()
			if tc.wantErr && (err == nil || !strings.Contains(err.Error(), "must not contain")) {
				t.Fatalf("expected containment error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ValidateRun returned error: %v", err)
			}
		})
	}
}

func TestValidateRejectsNegativeGPULayers(t *testing.T) {
	cfg := config.Default()
	cfg.Llama.GPULayers = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative gpu layers to be rejected")
	}
}

func TestValidateRejectsInvalidSchemaFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(schemaPath, []byte(`{"type": 42}`), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	configPath := filepath.Join(dir, "romscribe.toml")
	if err := os.WriteFile(configPath, []byte("[metadata]\nschema_path = \""+filepath.ToSlash(schemaPath)+"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected invalid schema to be rejected")
	}
}

func TestNotificationTimeoutValidatedOnlyWithTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.RequestTimeoutSeconds = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled notifications to skip timeout check, got %v", err)
	}
	cfg.Notifications.NtfyTopic = "https://ntfy.example/topic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero timeout to be rejected when a topic is set")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
