package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"romscribe/internal/config"
	"romscribe/internal/diffusion"
	"romscribe/internal/gamelist"
	"romscribe/internal/metadata"
)

type stubMetadata struct {
	failLabel string
}

func (stubMetadata) Open(context.Context) error { return nil }

func (s stubMetadata) Generate(_ context.Context, label string) (gamelist.Game, error) {
	if s.failLabel != "" && strings.Contains(label, s.failLabel) {
		return gamelist.Game{}, &metadata.GenerationError{Label: label, Err: errors.New("model refused")}
	}
	name := strings.TrimSuffix(strings.TrimPrefix(label, `rom file "`), `.zip"`)
	return gamelist.Game{Name: strings.ToUpper(name), Desc: "desc", Rating: 0.75, Genre: "Action", Players: 2}, nil
}

func (stubMetadata) Close() error { return nil }

type stubImages struct{}

func (stubImages) Open(context.Context) error { return nil }

func (stubImages) Generate(context.Context, string, diffusion.Params) (*diffusion.Tensor, error) {
	return diffusion.NewTensor(3, 8, 8), nil
}

func (stubImages) Close() error { return nil }

type cliEnv struct {
	base       string
	inputDir   string
	outputDir  string
	configPath string
	ctx        *commandContext
}

func setupCLIEnv(t *testing.T, roms ...string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("HORDE_API_KEY", "")
	env := &cliEnv{
		base:       base,
		inputDir:   filepath.Join(base, "roms"),
		outputDir:  filepath.Join(base, "out"),
		configPath: filepath.Join(base, "romscribe.toml"),
		ctx:        newCommandContext(),
	}
	if err := os.MkdirAll(env.inputDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}
	for _, name := range roms {
		if err := os.WriteFile(filepath.Join(env.inputDir, name), []byte("rom"), 0o644); err != nil {
			t.Fatalf("write rom: %v", err)
		}
	}
	env.ctx.newMetadata = func(*config.Config, *slog.Logger) (metadata.Generator, error) {
		return stubMetadata{}, nil
	}
	env.ctx.newImages = func(*config.Config, *slog.Logger) (diffusion.Generator, error) {
		return stubImages{}, nil
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", e.configPath, "--log-level", "error"}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliEnv) runArgs() []string {
	return []string{"-m", filepath.Join(e.base, "model.gguf"), "-i", e.inputDir, "-o", e.outputDir}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRootCommandWritesGameList(t *testing.T) {
	env := setupCLIEnv(t, "sonic.zip", "bad.zip", "readme.txt")
	env.ctx.newMetadata = func(*config.Config, *slog.Logger) (metadata.Generator, error) {
		return stubMetadata{failLabel: "bad.zip"}, nil
	}

	out, err := env.run(t, env.runArgs()...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "2 rom(s), 1 generated, 1 failed")
	requireContains(t, out, "FAILED")
	requireContains(t, out, "Wrote "+filepath.Join(env.outputDir, gamelist.FileName))

	games, err := gamelist.Read(filepath.Join(env.outputDir, gamelist.FileName))
	if err != nil {
		t.Fatalf("read game list: %v", err)
	}
	if len(games) != 1 || games[0].Name != "SONIC" {
		t.Fatalf("unexpected games: %+v", games)
	}
}

func TestRootCommandWithImages(t *testing.T) {
	env := setupCLIEnv(t, "sonic.zip")

	out, err := env.run(t, append(env.runArgs(), "--images")...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "1 image(s) written")
	if _, err := os.Stat(filepath.Join(env.outputDir, "media", "images", "sonic.png")); err != nil {
		t.Fatalf("expected cover art: %v", err)
	}
}

func TestRootCommandRequiresPaths(t *testing.T) {
	env := setupCLIEnv(t)
	_, err := env.run(t, "-m", "model.gguf")
	if err == nil || !strings.Contains(err.Error(), "input directory is required") {
		t.Fatalf("expected missing input directory error, got %v", err)
	}
}

func TestRootCommandReportsFatalFailure(t *testing.T) {
	env := setupCLIEnv(t, "a.zip")
	env.ctx.newMetadata = func(*config.Config, *slog.Logger) (metadata.Generator, error) {
		return nil, errors.New("model unavailable")
	}

	out, err := env.run(t, env.runArgs()...)
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected factory error, got %v", err)
	}
	requireContains(t, out, "No game list written")
}

func TestUnsetFlagsKeepFileValues(t *testing.T) {
	env := setupCLIEnv(t)
	content := "[llama]\ngpu_layers = 7\n[images]\nenabled = true\n"
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// The list command fails on the missing file, but only after the
	// persistent pre-run has resolved the configuration.
	_, _ = env.run(t, "-g", "3", "list", filepath.Join(env.base, "missing.xml"))

	cfg := env.ctx.config
	if cfg == nil {
		t.Fatal("expected config to be loaded")
	}
	if cfg.Llama.GPULayers != 3 {
		t.Fatalf("expected -g to override file, got %d", cfg.Llama.GPULayers)
	}
	if !cfg.Images.Enabled {
		t.Fatal("expected unset --images flag to keep the file value")
	}
}

func TestListCommand(t *testing.T) {
	env := setupCLIEnv(t, "sonic.zip")
	if _, err := env.run(t, env.runArgs()...); err != nil {
		t.Fatalf("run: %v", err)
	}

	env.ctx = newCommandContext()
	out, err := env.run(t, "list", filepath.Join(env.outputDir, gamelist.FileName))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "SONIC")
	requireContains(t, out, "sonic.zip")
	requireContains(t, out, "1 game(s)")
}

func TestCheckCommandFailsForMissingInput(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "check", "-i", filepath.Join(env.base, "missing"), "-o", env.outputDir, "-m", filepath.Join(env.base, "model.gguf"))
	if err == nil {
		t.Fatal("expected check to fail")
	}
	requireContains(t, out, "Input directory:")
	requireContains(t, out, "does not exist")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.base, "nested", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	env.configPath = target
	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestRunSendsCompletionNotification(t *testing.T) {
	env := setupCLIEnv(t, "sonic.zip")
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer srv.Close()
	content := fmt.Sprintf("[notifications]\nntfy_topic = %q\n", srv.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := env.run(t, env.runArgs()...); err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, body, "1 of 1 roms described")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLIEnv(t)
	_, err := env.run(t, "test-notify")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}
