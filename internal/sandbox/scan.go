package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

const (
	scanMount    = "/scan"
	codeFileName = "code.txt"
)

// EntryCommand is what the container runs to scan the mounted code.
var EntryCommand = []string{"d-scan", "sandbox", "entry"}

// Report is the JSON document the entrypoint prints on stdout.
type Report struct {
	Success     bool           `json:"success"`
	Language    string         `json:"language,omitempty"`
	IssuesCount int            `json:"issuesCount"`
	Issues      []core.Finding `json:"issues"`
	Summary     core.Summary   `json:"summary"`
	Error       string         `json:"error,omitempty"`
}

// ScanInSandbox runs the lexical scan of code inside a container. base
// supplies image and limits; mounts, env and command are filled in here.
// The per-call temp dir is removed on every path.
func (m *Manager) ScanInSandbox(ctx context.Context, code string, lang source.Language, base Request) (Report, Result, error) {
	dir, err := os.MkdirTemp("", "d-scan-sandbox-")
	if err != nil {
		return Report{}, Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// внутри контейнера сканер может работать не от root
	if err := os.Chmod(dir, 0o755); err != nil {
		return Report{}, Result{}, fmt.Errorf("chmod temp dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, codeFileName), []byte(code), 0o644); err != nil {
		return Report{}, Result{}, fmt.Errorf("write code: %w", err)
	}

	if lang == "" {
		lang = source.LangAuto
	}
	req := base
	req.Mounts = append(append([]Mount(nil), base.Mounts...), Mount{Host: dir, Target: scanMount, ReadOnly: true})
	req.Env = map[string]string{}
	for k, v := range base.Env {
		req.Env[k] = v
	}
	req.Env["SCAN_CODE_FILE"] = scanMount + "/" + codeFileName
	req.Env["SCAN_LANGUAGE"] = string(lang)
	if len(req.Command) == 0 {
		req.Command = EntryCommand
	}

	res := m.Run(ctx, req)
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = strings.TrimSpace(res.Stderr)
		}
		return Report{}, res, fmt.Errorf("sandbox scan failed (exit %d): %s", res.ExitCode, reason)
	}

	var report Report
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		return Report{}, res, fmt.Errorf("decode sandbox report: %w", err)
	}
	if !report.Success {
		return report, res, errors.New("sandbox entrypoint: " + report.Error)
	}
	return report, res, nil
}
