package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"romscribe/internal/config"
	"romscribe/internal/deps"
	"romscribe/internal/diffusion"
	"romscribe/internal/services/llama"
)

const probeTimeout = 5 * time.Second

// CheckInputDirectory verifies that the ROM directory exists and can be listed.
func CheckInputDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

// CheckOutputParent verifies that the output directory can be created or
// replaced. Only the parent needs to be writable because the output
// directory itself is deleted on every run.
func CheckOutputParent(name, path string) Result {
	parent := filepath.Dir(filepath.Clean(path))
	result := checkDirectory(name, parent, unix.W_OK|unix.X_OK, "writable")
	if result.Passed {
		result.Detail = fmt.Sprintf("%s (parent writable)", path)
	}
	return result
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckModelFile verifies that the GGUF model is a readable regular file.
func CheckModelFile(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, formatSize(info.Size()))}
}

// CheckBinary reports whether a required executable is on PATH.
func CheckBinary(name, command string) Result {
	status := deps.CheckBinaries([]deps.Requirement{{Name: name, Command: command}})[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Path}
}

// CheckLlamaEndpoint probes an already running llama.cpp server.
func CheckLlamaEndpoint(ctx context.Context, name, endpoint string) Result {
	server, err := llama.New(llama.Config{Endpoint: endpoint})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := server.Health(checkCtx); err != nil {
		if errors.Is(err, llama.ErrNotReady) {
			return Result{Name: name, Detail: "reachable but still loading the model"}
		}
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (healthy)", server.BaseURL())}
}

// CheckSDWebUI verifies that the Stable Diffusion WebUI API answers.
func CheckSDWebUI(ctx context.Context, name, endpoint string) Result {
	gen, err := diffusion.NewSDWebUI(diffusion.SDWebUIConfig{Endpoint: endpoint, Timeout: probeTimeout})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := gen.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", endpoint)}
}

// CheckAPIKey only confirms a key is present; hosted backends are not
// contacted so a check never spends quota.
func CheckAPIKey(name, key, source string) Result {
	if key == "" {
		return Result{Name: name, Detail: fmt.Sprintf("missing (set %s)", source)}
	}
	return Result{Name: name, Passed: true, Detail: "key configured"}
}

// CheckConfig re-runs run-level validation so `check` reports it alongside
// the environment probes.
func CheckConfig(cfg *config.Config) Result {
	if err := cfg.ValidateRun(); err != nil {
		return Result{Name: "Configuration", Detail: err.Error()}
	}
	return Result{Name: "Configuration", Passed: true, Detail: "valid"}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (service unreachable)"
	}
	return err.Error()
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
