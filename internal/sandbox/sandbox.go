// Package sandbox запускает сканер в изолированном контейнере:
// лимиты CPU/памяти, без сети, read-only rootfs, таймаут и гарантированная очистка.
package sandbox

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const (
	DefaultImage    = "devos/d-scan:latest"
	DefaultCPUs     = 0.5
	DefaultMemoryMB = 512
	DefaultTimeout  = 30 * time.Second

	// unitPrefix помечает все наши контейнеры, по нему работает CleanupAll
	unitPrefix = "scanner-"

	// docker run возвращает 125, когда ошибся сам docker (нет образа, плохой флаг)
	dockerRunFailure = 125
)

var ErrDockerUnavailable = errors.New("docker daemon unavailable")

// Mount is a bind mount from the host into the sandbox.
type Mount struct {
	Host     string
	Target   string
	ReadOnly bool
}

// Request describes one sandboxed execution. Zero values mean the safe
// defaults: isolated network and immutable root filesystem.
type Request struct {
	Image          string
	Command        []string
	Env            map[string]string
	CPUs           float64
	MemoryMB       int
	Timeout        time.Duration
	Network        bool
	WritableRootfs bool
	Mounts         []Mount
}

// Result is the outcome of Manager.Run. Run never returns an error value;
// failures are described here.
type Result struct {
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	TimedOut bool          `json:"timedOut"`
	Error    string        `json:"error,omitempty"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

func (r Request) withDefaults() Request {
	if r.Image == "" {
		r.Image = DefaultImage
	}
	if r.CPUs <= 0 {
		r.CPUs = DefaultCPUs
	}
	if r.MemoryMB <= 0 {
		r.MemoryMB = DefaultMemoryMB
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	return r
}

// BuildArgs returns the docker CLI arguments for req (without the binary).
// Env keys are emitted sorted so the argv is deterministic.
func BuildArgs(req Request, name string) []string {
	args := []string{
		"run", "--rm",
		"--name", name,
		"--memory", fmt.Sprintf("%dm", req.MemoryMB),
		"--cpus", strconv.FormatFloat(req.CPUs, 'f', -1, 64),
	}
	if !req.Network {
		args = append(args, "--network", "none")
	}
	if !req.WritableRootfs {
		args = append(args, "--read-only")
	}
	args = append(args,
		"--security-opt", "no-new-privileges",
		"--cap-drop", "ALL",
	)

	keys := make([]string, 0, len(req.Env))
	for k := range req.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+req.Env[k])
	}

	for _, m := range req.Mounts {
		mode := "rw"
		if m.ReadOnly {
			mode = "ro"
		}
		args = append(args, "-v", fmt.Sprintf("%s:%s:%s", m.Host, m.Target, mode))
	}

	args = append(args, req.Image)
	return append(args, req.Command...)
}
