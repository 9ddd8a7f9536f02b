package llama_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"romscribe/internal/services/llama"
)

type stubProcess struct {
	done    chan struct{}
	err     error
	stopped atomic.Int32
	once    sync.Once
}

func newStubProcess() *stubProcess { return &stubProcess{done: make(chan struct{})} }

func (p *stubProcess) Done() <-chan struct{} { return p.done }

func (p *stubProcess) Err() error { return p.err }

func (p *stubProcess) Stop() error {
	p.stopped.Add(1)
	p.once.Do(func() { close(p.done) })
	return nil
}

type stubExecutor struct {
	proc   *stubProcess
	err    error
	binary string
	args   []string
	lines  []string
}

func (s *stubExecutor) Start(_ context.Context, binary string, args []string, onOutput func(string)) (llama.Process, error) {
	s.binary = binary
	s.args = append([]string(nil), args...)
	if s.err != nil {
		return nil, s.err
	}
	for _, line := range s.lines {
		onOutput(line)
	}
	return s.proc, nil
}

func hostPort(t *testing.T, server *httptest.Server) (string, int) {
	t.Helper()
	addr, ok := server.Listener.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected listener address %v", server.Listener.Addr())
	}
	return addr.IP.String(), addr.Port
}

func TestStartLaunchesWithExpectedArgsAndWaitsForHealth(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if probes.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	host, port := hostPort(t, server)

	exec := &stubExecutor{proc: newStubProcess(), lines: []string{"loading model"}}
	srv, err := llama.New(llama.Config{
		Binary:      "llama-server",
		ModelPath:   "/models/genesis.gguf",
		ContextSize: 4096,
		GPULayers:   1,
		Host:        host,
		Port:        port,
	}, llama.WithExecutor(exec), llama.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if exec.binary != "llama-server" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	want := "-m /models/genesis.gguf -c 4096 -ngl 1 --host " + host
	if got := strings.Join(exec.args, " "); !strings.HasPrefix(got, want) {
		t.Fatalf("unexpected args: got %q want prefix %q", got, want)
	}
	if got := probes.Load(); got < 3 {
		t.Fatalf("expected readiness polling, got %d probes", got)
	}
	if !strings.HasSuffix(srv.CompletionsURL(), "/v1/chat/completions") {
		t.Fatalf("unexpected completions url %q", srv.CompletionsURL())
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if got := exec.proc.stopped.Load(); got != 1 {
		t.Fatalf("expected process stopped once, got %d", got)
	}
}

func TestStartFailsWhenProcessExits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	host, port := hostPort(t, server)

	proc := newStubProcess()
	proc.err = errors.New("exit status 1")
	close(proc.done)
	proc.once.Do(func() {})

	srv, err := llama.New(llama.Config{Binary: "llama-server", ModelPath: "m.gguf", Host: host, Port: port},
		llama.WithExecutor(&stubExecutor{proc: proc}), llama.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = srv.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("expected exit error, got %v", err)
	}
}

func TestStartTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	host, port := hostPort(t, server)

	exec := &stubExecutor{proc: newStubProcess()}
	srv, err := llama.New(llama.Config{
		Binary: "llama-server", ModelPath: "m.gguf", Host: host, Port: port,
		StartupTimeout: 30 * time.Millisecond,
	}, llama.WithExecutor(exec), llama.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = srv.Start(context.Background())
	if !errors.Is(err, llama.ErrNotReady) {
		t.Fatalf("expected ErrNotReady in chain, got %v", err)
	}
	if exec.proc.stopped.Load() != 1 {
		t.Fatal("expected failed start to stop the process")
	}
}

func TestStartReportsLaunchError(t *testing.T) {
	srv, err := llama.New(llama.Config{Binary: "missing", ModelPath: "m.gguf", Port: 1},
		llama.WithExecutor(&stubExecutor{err: errors.New("executable file not found")}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "launch missing") {
		t.Fatalf("expected launch error, got %v", err)
	}
}

func TestAttachToEndpointLaunchesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exec := &stubExecutor{proc: newStubProcess()}
	srv, err := llama.New(llama.Config{Endpoint: server.URL + "/"}, llama.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if exec.binary != "" {
		t.Fatalf("expected no launch, got binary %q", exec.binary)
	}
	if srv.BaseURL() != server.URL {
		t.Fatalf("unexpected base url %q", srv.BaseURL())
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestNewRequiresModelWhenLaunching(t *testing.T) {
	if _, err := llama.New(llama.Config{Binary: "llama-server", Port: 8089}); err == nil {
		t.Fatal("expected missing model path to be rejected")
	}
	if _, err := llama.New(llama.Config{ModelPath: "m.gguf", Port: 8089}); err == nil {
		t.Fatal("expected missing binary to be rejected")
	}
}
