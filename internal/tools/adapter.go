package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/runner"
)

// Adapter runs one external scanner over a single piece of code.
// A missing tool is not an error: Scan logs a warning and returns nil.
type Adapter interface {
	Name() string
	Scan(ctx context.Context, code, filename string) ([]core.Finding, error)
}

// LookupFunc resolves a tool name to a binary path.
type LookupFunc func(name string) (string, error)

type base struct {
	runner runner.Runner
	lookup LookupFunc
}

func newBase(r runner.Runner, lookup LookupFunc) base {
	if r == nil {
		r = runner.NewExec()
	}
	if lookup == nil {
		lookup = EnsureTool
	}
	return base{runner: r, lookup: lookup}
}

// resolve returns "" when the tool is missing; the caller skips silently.
func (b base) resolve(name string) string {
	bin, err := b.lookup(name)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool not available, skipping")
		return ""
	}
	return bin
}

// workspace is a per-call temp dir holding the code under its original name.
type workspace struct {
	dir  string
	file string
}

func newWorkspace(prefix, filename, code string) (*workspace, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		name = "scan.txt"
	}
	file := filepath.Join(dir, name)
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	return &workspace{dir: dir, file: file}, nil
}

func (w *workspace) Close() {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Debug().Err(err).Str("dir", w.dir).Msg("temp dir cleanup")
	}
}

// framework maps a file name onto the IaC framework name checkov and trivy use.
func framework(filename string) string {
	lower := strings.ToLower(filepath.Base(filename))
	switch {
	case lower == "dockerfile" || strings.HasPrefix(lower, "dockerfile.") || strings.HasSuffix(lower, ".dockerfile"):
		return "dockerfile"
	case strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml"):
		return "kubernetes"
	case strings.HasSuffix(lower, ".tf") || strings.HasSuffix(lower, ".tfvars"):
		return "terraform"
	}
	return ""
}

func mapSeverity(s string) (core.Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return core.SevCritical, true
	case "HIGH":
		return core.SevHigh, true
	case "MEDIUM":
		return core.SevMedium, true
	case "LOW", "INFO", "UNKNOWN":
		return core.SevLow, true
	}
	return 0, false
}

// cweForID угадывает CWE по ключевым словам в id проверки.
func cweForID(id string) string {
	lower := strings.ToLower(id)
	switch {
	case containsAnyOf(lower, "secret", "password", "key"):
		return "CWE-798"
	case containsAnyOf(lower, "root", "privilege"):
		return "CWE-250"
	case containsAnyOf(lower, "public", "network", "port"):
		return "CWE-923"
	case containsAnyOf(lower, "encryption", "crypto"):
		return "CWE-327"
	case containsAnyOf(lower, "logging", "audit"):
		return "CWE-778"
	}
	return "CWE-16"
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

const (
	owaspAuth       = "A07:2021 - Identification and Authentication Failures"
	owaspMisconfig  = "A05:2021 - Security Misconfiguration"
	owaspComponents = "A06:2021 - Vulnerable and Outdated Components"
)
