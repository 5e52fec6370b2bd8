package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devos-os/d-scan/internal/runner"
)

type fakeRemover struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (f *fakeRemover) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return f.err
}

func (f *fakeRemover) removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func TestBuildArgsDefaults(t *testing.T) {
	req := Request{
		Image:   "scanner:1",
		Command: []string{"d-scan", "sandbox", "entry"},
		Env:     map[string]string{"SCAN_LANGUAGE": "go", "A": "1"},
		Mounts:  []Mount{{Host: "/tmp/x", Target: "/scan", ReadOnly: true}, {Host: "/out", Target: "/out"}},
	}.withDefaults()

	got := BuildArgs(req, "scanner-1")
	want := []string{
		"run", "--rm", "--name", "scanner-1",
		"--memory", "512m", "--cpus", "0.5",
		"--network", "none", "--read-only",
		"--security-opt", "no-new-privileges", "--cap-drop", "ALL",
		"-e", "A=1", "-e", "SCAN_LANGUAGE=go",
		"-v", "/tmp/x:/scan:ro", "-v", "/out:/out:rw",
		"scanner:1", "d-scan", "sandbox", "entry",
	}
	assert.Equal(t, want, got)
}

func TestBuildArgsOptIns(t *testing.T) {
	req := Request{Image: "img", CPUs: 2, MemoryMB: 1024, Network: true, WritableRootfs: true}.withDefaults()
	got := BuildArgs(req, "scanner-2")

	assert.NotContains(t, got, "--read-only")
	assert.NotContains(t, got, "none")
	assert.Contains(t, got, "1024m")
	assert.Contains(t, got, "2")
	// эти флаги не отключаются никогда
	assert.Contains(t, got, "no-new-privileges")
	assert.Contains(t, got, "ALL")
}

func TestWithDefaults(t *testing.T) {
	req := Request{}.withDefaults()
	assert.Equal(t, DefaultImage, req.Image)
	assert.Equal(t, DefaultCPUs, req.CPUs)
	assert.Equal(t, DefaultMemoryMB, req.MemoryMB)
	assert.Equal(t, DefaultTimeout, req.Timeout)
	assert.False(t, req.Network)
	assert.False(t, req.WritableRootfs)
}

func TestRunCompleted(t *testing.T) {
	f := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{Out: "ok", Err: "note"}
	}}
	rm := &fakeRemover{}
	res := NewManager(f, rm).Run(context.Background(), Request{Image: "img", Command: []string{"true"}})

	assert.True(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "ok", res.Stdout)
	assert.Equal(t, "note", res.Stderr)
	assert.Empty(t, res.Error)
	assert.True(t, strings.HasPrefix(res.Name, "scanner-"))

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "docker", calls[0].Name)
	assert.Contains(t, calls[0].Args, res.Name)
	assert.Equal(t, []string{res.Name}, rm.removed())
}

func TestRunNonZeroExit(t *testing.T) {
	f := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{ExitCode: 1}
	}}
	rm := &fakeRemover{}
	res := NewManager(f, rm).Run(context.Background(), Request{Image: "img"})

	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 1, res.ExitCode)
	assert.Len(t, rm.removed(), 1)
}

func TestRunTimeoutKillsAndCleansUp(t *testing.T) {
	proc := &runner.FakeProcess{Hang: true}
	f := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess { return proc }}
	rm := &fakeRemover{}

	start := time.Now()
	res := NewManager(f, rm).Run(context.Background(), Request{Image: "img", Timeout: 50 * time.Millisecond})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "timed out")
	assert.True(t, proc.Killed())
	assert.Equal(t, []string{res.Name}, rm.removed())
}

func TestRunMissingImage(t *testing.T) {
	f := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{
			Err:      "Unable to find image 'nope:latest' locally\ndocker: Error response from daemon: pull access denied\n",
			ExitCode: 125,
		}
	}}
	rm := &fakeRemover{}
	res := NewManager(f, rm).Run(context.Background(), Request{Image: "nope:latest"})

	assert.False(t, res.Success)
	assert.Equal(t, 125, res.ExitCode)
	assert.Contains(t, res.Error, "Unable to find image")
	assert.Len(t, rm.removed(), 1)
}

func TestRunStartFailure(t *testing.T) {
	f := &runner.Fake{StartErr: errors.New(`exec: "docker": executable file not found in $PATH`)}
	rm := &fakeRemover{}
	res := NewManager(f, rm).Run(context.Background(), Request{})

	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "executable file not found")
	assert.Len(t, rm.removed(), 1)
}

func TestRunRecoversPanic(t *testing.T) {
	f := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess { panic("boom") }}
	rm := &fakeRemover{}

	var res Result
	require.NotPanics(t, func() { res = NewManager(f, rm).Run(context.Background(), Request{}) })
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Error, "boom")
	assert.NotEmpty(t, res.Name)
	assert.Equal(t, []string{res.Name}, rm.removed())
}

// panicOnWait падает уже после того, как таймер взведен.
type panicOnWait struct{ *runner.FakeProcess }

func (panicOnWait) Wait() (int, error) { panic("wait exploded") }

func TestRunPanicStopsTimeoutTimer(t *testing.T) {
	proc := &runner.FakeProcess{}
	f := &fakeStarter{proc: panicOnWait{proc}}
	rm := &fakeRemover{}

	res := NewManager(f, rm).Run(context.Background(), Request{Timeout: 30 * time.Millisecond})
	assert.Contains(t, res.Error, "wait exploded")
	assert.Len(t, rm.removed(), 1)

	time.Sleep(150 * time.Millisecond)
	assert.False(t, proc.Killed(), "timer must not fire after a recovered panic")
}

type fakeStarter struct{ proc runner.Process }

func (f *fakeStarter) Start(context.Context, string, ...string) (runner.Process, error) {
	return f.proc, nil
}

func TestRemoveErrorIsSwallowed(t *testing.T) {
	rm := &fakeRemover{err: errors.New("no such container")}
	res := NewManager(&runner.Fake{}, rm).Run(context.Background(), Request{})
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
}

func TestConcurrentRunsGetDistinctNames(t *testing.T) {
	rm := &fakeRemover{}
	m := NewManager(&runner.Fake{}, rm)

	const n = 8
	names := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = m.Run(context.Background(), Request{}).Name
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, name := range names {
		assert.False(t, seen[name], "duplicate unit name %s", name)
		seen[name] = true
	}
	assert.Len(t, rm.removed(), n)
}

func TestCLIRemover(t *testing.T) {
	f := &runner.Fake{}
	require.NoError(t, (&CLIRemover{Runner: f}).Remove(context.Background(), "scanner-x"))
	assert.Equal(t, []runner.Call{{Name: "docker", Args: []string{"rm", "-f", "scanner-x"}}}, f.Calls())

	failing := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{ExitCode: 1, Err: "daemon down"}
	}}
	err := (&CLIRemover{Runner: failing}).Remove(context.Background(), "scanner-x")
	assert.ErrorContains(t, err, "daemon down")
}

func TestCleanupAllThroughCLI(t *testing.T) {
	f := &runner.Fake{Respond: func(name string, args []string) *runner.FakeProcess {
		if len(args) > 0 && args[0] == "ps" {
			return &runner.FakeProcess{Out: "aaa111\nbbb222\n"}
		}
		return nil
	}}
	rm := &fakeRemover{}
	n, err := NewManager(f, rm).CleanupAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"aaa111", "bbb222"}, rm.removed())
	assert.Contains(t, f.Calls()[0].Args, "name=scanner-")
}

func TestImageExistsThroughCLI(t *testing.T) {
	present := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{Out: "sha256:abc\n"}
	}}
	ok, err := NewManager(present, &fakeRemover{}).ImageExists(context.Background(), "img")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewManager(&runner.Fake{}, &fakeRemover{}).ImageExists(context.Background(), "img")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableThroughCLI(t *testing.T) {
	assert.True(t, NewManager(&runner.Fake{}, nil).Available(context.Background()))

	down := &runner.Fake{Respond: func(string, []string) *runner.FakeProcess {
		return &runner.FakeProcess{ExitCode: 1}
	}}
	assert.False(t, NewManager(down, nil).Available(context.Background()))
}
