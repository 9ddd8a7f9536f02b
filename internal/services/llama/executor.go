package llama

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Executor abstracts launching the server process for testability.
type Executor interface {
	Start(ctx context.Context, binary string, args []string, onOutput func(string)) (Process, error)
}

// Process is a running server started by an Executor.
type Process interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err reports the exit error after Done is closed.
	Err() error
	// Stop asks the process to exit and waits for it.
	Stop() error
}

const stopGracePeriod = 10 * time.Second

type commandExecutor struct{}

func (commandExecutor) Start(_ context.Context, binary string, args []string, onOutput func(string)) (Process, error) {
	// The server outlives the Start call, so it is not bound to ctx; Stop ends it.
	cmd := exec.Command(binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	proc := &commandProcess{cmd: cmd, done: make(chan struct{})}

	forward := func(line string) {
		if onOutput != nil {
			onOutput(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}
	scan := func(r io.Reader) {
		defer proc.wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
	}

	proc.wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	go func() {
		proc.wg.Wait()
		proc.err = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

type commandProcess struct {
	cmd  *exec.Cmd
	wg   sync.WaitGroup
	done chan struct{}
	err  error
}

func (p *commandProcess) Done() <-chan struct{} { return p.done }

func (p *commandProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *commandProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal server: %w", err)
	}
	timer := time.NewTimer(stopGracePeriod)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill server: %w", err)
	}
	<-p.done
	return nil
}
