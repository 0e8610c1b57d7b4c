package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Runner starts an external process and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run executes name with args and waits for it to exit.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Executor runs scheduler commands, or only prints them when DryRun is set.
type Executor struct {
	Runner Runner
	DryRun bool
	Out    io.Writer
}

// NewExecutor creates a new executor backed by os/exec.
func NewExecutor(dryRun bool) *Executor {
	return &Executor{
		Runner: ExecRunner{},
		DryRun: dryRun,
		Out:    os.Stdout,
	}
}

// Run executes argv once.
func (e *Executor) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}
	if e.DryRun {
		quoted := make([]string, len(argv))
		for i, a := range argv {
			quoted[i] = shellQuote(a)
		}
		fmt.Fprintf(e.Out, "[DRY-RUN] Would execute: %s\n", strings.Join(quoted, " "))
		return "", nil
	}
	output, err := e.Runner.Run(ctx, argv[0], argv[1:]...)
	return string(output), err
}

// FakeRunner records every call and answers from RunFunc. It is safe for
// concurrent use.
type FakeRunner struct {
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu    sync.Mutex
	calls [][]string
}

// Run records the call and delegates to RunFunc, returning nil output when
// RunFunc is unset.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.RunFunc != nil {
		return f.RunFunc(ctx, name, args...)
	}
	return nil, nil
}

// Calls returns a copy of the recorded argv slices.
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}
