package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/runner"
)

const removeTimeout = 15 * time.Second

// Remover destroys a sandbox unit by name. Removing a unit that is already
// gone must not be treated as a failure by callers.
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// Manager runs Requests through the docker CLI. It holds only read-only
// configuration, so concurrent Run calls are safe.
type Manager struct {
	runner  runner.Runner
	remover Remover
	daemon  *DockerClient
	binary  string
}

// NewManager wires a manager. A nil remover falls back to `docker rm -f`
// through the runner.
func NewManager(r runner.Runner, rm Remover) *Manager {
	m := &Manager{runner: r, remover: rm, binary: "docker"}
	if rm == nil {
		m.remover = &CLIRemover{Runner: r}
	}
	if d, ok := rm.(*DockerClient); ok {
		m.daemon = d
	}
	return m
}

// Run executes req in a fresh container and always removes it afterwards.
func (m *Manager) Run(ctx context.Context, req Request) (res Result) {
	req = req.withDefaults()
	name := unitPrefix + uuid.NewString()
	start := time.Now()
	logger := log.With().Str("container", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("sandbox run panicked")
			res = failed(name, fmt.Sprintf("sandbox panic: %v", r))
		}
		res.Name = name
		res.Duration = time.Since(start)
		m.remove(ctx, name)
	}()

	logger.Debug().Str("image", req.Image).Dur("timeout", req.Timeout).Msg("starting sandbox")
	proc, err := m.runner.Start(ctx, m.binary, BuildArgs(req, name)...)
	if err != nil {
		return failed(name, err.Error())
	}

	timer := time.AfterFunc(req.Timeout, func() {
		logger.Warn().Dur("timeout", req.Timeout).Msg("sandbox timed out, killing")
		if err := proc.Kill(); err != nil {
			logger.Debug().Err(err).Msg("kill failed")
		}
	})
	defer timer.Stop()

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(&stdout, proc.Stdout()) }()
	go func() { defer wg.Done(); _, _ = io.Copy(&stderr, proc.Stderr()) }()
	wg.Wait()

	code, waitErr := proc.Wait()
	// Stop == false значит таймер уже сработал
	timedOut := !timer.Stop()

	res = Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: code,
	}
	switch {
	case timedOut:
		res.TimedOut = true
		res.Error = fmt.Sprintf("timed out after %s", req.Timeout)
	case waitErr != nil:
		res.Error = waitErr.Error()
	case ctx.Err() != nil:
		res.Error = ctx.Err().Error()
	case code == dockerRunFailure:
		res.Error = strings.TrimSpace(res.Stderr)
		if res.Error == "" {
			res.Error = "docker run failed"
		}
	default:
		res.Success = code == 0
	}
	return res
}

func failed(name, msg string) Result {
	return Result{Name: name, ExitCode: -1, Error: msg}
}

// Ошибки удаления только логируем: контейнер с --rm обычно уже исчез.
func (m *Manager) remove(ctx context.Context, name string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()
	if err := m.remover.Remove(rctx, name); err != nil {
		log.Debug().Err(err).Str("container", name).Msg("sandbox cleanup")
	}
}

// Available reports whether a docker daemon answers.
func (m *Manager) Available(ctx context.Context) bool {
	if m.daemon != nil {
		return m.daemon.Ping(ctx) == nil
	}
	out, err := runner.Run(ctx, m.runner, m.binary, "version", "--format", "{{.Server.Version}}")
	return err == nil && out.ExitCode == 0
}

// ImageExists reports whether image is present locally.
func (m *Manager) ImageExists(ctx context.Context, image string) (bool, error) {
	if m.daemon != nil {
		return m.daemon.ImageExists(ctx, image)
	}
	out, err := runner.Run(ctx, m.runner, m.binary, "images", "-q", image)
	if err != nil {
		return false, fmt.Errorf("docker images: %w", err)
	}
	if out.ExitCode != 0 {
		return false, fmt.Errorf("docker images: exit %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return strings.TrimSpace(string(out.Stdout)) != "", nil
}

// CleanupAll force-removes every leftover scanner- container and returns
// how many were removed.
func (m *Manager) CleanupAll(ctx context.Context) (int, error) {
	var ids []string
	if m.daemon != nil {
		found, err := m.daemon.ListUnits(ctx)
		if err != nil {
			return 0, err
		}
		ids = found
	} else {
		out, err := runner.Run(ctx, m.runner, m.binary, "ps", "-a", "--filter", "name="+unitPrefix, "-q")
		if err != nil {
			return 0, fmt.Errorf("docker ps: %w", err)
		}
		ids = strings.Fields(string(out.Stdout))
	}

	removed := 0
	for _, id := range ids {
		if err := m.remover.Remove(ctx, id); err != nil {
			log.Warn().Err(err).Str("container", id).Msg("cleanup failed")
			continue
		}
		removed++
	}
	return removed, nil
}

// CLIRemover removes containers with `docker rm -f`.
type CLIRemover struct {
	Runner runner.Runner
}

func (c *CLIRemover) Remove(ctx context.Context, name string) error {
	out, err := runner.Run(ctx, c.Runner, "docker", "rm", "-f", name)
	if err != nil {
		return fmt.Errorf("docker rm %s: %w", name, err)
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("docker rm %s: exit %d: %s", name, out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return nil
}
