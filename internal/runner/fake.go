package runner

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Call records one Start invocation on a Fake.
type Call struct {
	Name string
	Args []string
}

// Fake is a scripted Runner for tests.
type Fake struct {
	// Respond picks the process for a call; nil means a process that exits 0.
	Respond  func(name string, args []string) *FakeProcess
	StartErr error

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Start(_ context.Context, name string, args ...string) (Process, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.Respond == nil {
		return &FakeProcess{}, nil
	}
	if p := f.Respond(name, args); p != nil {
		return p, nil
	}
	return &FakeProcess{}, nil
}

// Calls returns a snapshot of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// FakeProcess returns canned output. With Hang set, Wait blocks until Kill.
type FakeProcess struct {
	Out      string
	Err      string
	ExitCode int
	WaitErr  error
	Hang     bool

	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	killed bool
}

func (p *FakeProcess) init() { p.once.Do(func() { p.done = make(chan struct{}) }) }

func (p *FakeProcess) Stdout() io.Reader { return strings.NewReader(p.Out) }
func (p *FakeProcess) Stderr() io.Reader { return strings.NewReader(p.Err) }

func (p *FakeProcess) Wait() (int, error) {
	p.init()
	if p.Hang {
		<-p.done
		return -1, nil
	}
	return p.ExitCode, p.WaitErr
}

func (p *FakeProcess) Kill() error {
	p.init()
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.killed {
		p.killed = true
		close(p.done)
	}
	return nil
}

// Killed reports whether Kill was called.
func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}
