// Package runner запускает внешние команды. Интерфейс нужен, чтобы sandbox
// и адаптеры тестировались без docker/gitleaks в системе.
package runner

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Process is a started command. Stdout and Stderr must be drained before Wait.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait returns the exit code. Only non-exit failures are errors;
	// a process killed by a signal reports -1.
	Wait() (int, error)
	// Kill sends SIGKILL to the process and all its descendants.
	Kill() error
}

// Runner starts processes.
type Runner interface {
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// Output is the captured result of a finished command.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run starts the command, drains both streams and waits for it.
func Run(ctx context.Context, r Runner, name string, args ...string) (Output, error) {
	proc, err := r.Start(ctx, name, args...)
	if err != nil {
		return Output{ExitCode: -1}, err
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(&stdout, proc.Stdout()) }()
	go func() { defer wg.Done(); _, _ = io.Copy(&stderr, proc.Stderr()) }()
	wg.Wait()

	code, err := proc.Wait()
	return Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: code}, err
}
