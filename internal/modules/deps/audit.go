package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/runner"
)

// LookupFunc resolves a binary name to a path.
type LookupFunc func(name string) (string, error)

// Auditor runs `npm audit` over a project root.
type Auditor struct {
	runner runner.Runner
	lookup LookupFunc
}

// NewAuditor builds an Auditor. A nil lookup searches PATH.
func NewAuditor(r runner.Runner, lookup LookupFunc) *Auditor {
	if r == nil {
		r = runner.NewExec()
	}
	if lookup == nil {
		lookup = exec.LookPath
	}
	return &Auditor{runner: r, lookup: lookup}
}

type npmAuditReport struct {
	Vulnerabilities map[string]struct {
		Name         string            `json:"name"`
		Severity     string            `json:"severity"`
		Range        string            `json:"range"`
		Via          []json.RawMessage `json:"via"`
		FixAvailable json.RawMessage   `json:"fixAvailable"`
	} `json:"vulnerabilities"`
}

// Audit runs npm audit when root holds a package.json. Missing npm is not an
// error: it is logged and nothing is reported.
func (a *Auditor) Audit(ctx context.Context, root string) ([]core.Finding, error) {
	manifest := filepath.Join(root, PackageJSON)
	if _, err := os.Stat(manifest); err != nil {
		return nil, nil
	}
	npm, err := a.lookup("npm")
	if err != nil || npm == "" {
		log.Warn().Err(err).Str("tool", "npm").Msg("npm not found, skipping audit")
		return nil, nil
	}

	out, err := runner.Run(ctx, a.runner, npm, "audit", "--json", "--prefix", root)
	if err != nil {
		return nil, fmt.Errorf("npm audit: %w", err)
	}
	// npm audit выходит с 1, если что-то нашел
	if len(bytes.TrimSpace(out.Stdout)) == 0 {
		return nil, fmt.Errorf("npm audit exited %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}

	var rep npmAuditReport
	if err := json.Unmarshal(out.Stdout, &rep); err != nil {
		return nil, fmt.Errorf("npm audit: decode report: %w", err)
	}

	names := make([]string, 0, len(rep.Vulnerabilities))
	for name := range rep.Vulnerabilities {
		names = append(names, name)
	}
	slices.Sort(names)

	findings := make([]core.Finding, 0, len(names))
	for _, name := range names {
		v := rep.Vulnerabilities[name]
		findings = append(findings, core.Finding{
			Category: core.CatDependencies,
			Rule:     "npm audit: " + name,
			Severity: npmSeverity(v.Severity),
			Message:  viaTitle(v.Via),
			Fix:      auditFix(name, v.FixAvailable),
			File:     manifest,
			Match:    fmt.Sprintf("%s@%s", name, v.Range),
			OWASP:    owaspOutdated,
			CWE:      cweOutdated,
			Metadata: map[string]any{"ecosystem": "npm", "package": name, "tool": "npm-audit"},
		})
	}
	log.Info().Str("tool", "npm").Int("findings", len(findings)).Msg("npm audit finished")
	return findings, nil
}

func npmSeverity(s string) core.Severity {
	switch s {
	case "critical":
		return core.SevCritical
	case "high":
		return core.SevHigh
	case "moderate":
		return core.SevMedium
	}
	return core.SevLow
}

// via содержит либо объекты advisory, либо имена транзитивных пакетов.
func viaTitle(via []json.RawMessage) string {
	for _, raw := range via {
		var adv struct {
			Title string `json:"title"`
		}
		if json.Unmarshal(raw, &adv) == nil && adv.Title != "" {
			return adv.Title
		}
		var dep string
		if json.Unmarshal(raw, &dep) == nil && dep != "" {
			return "Vulnerable through " + dep
		}
	}
	return "Vulnerability reported by npm audit"
}

func auditFix(name string, raw json.RawMessage) string {
	var fix struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &fix); err == nil && fix.Version != "" {
		return fmt.Sprintf("Run npm audit fix or upgrade %s to %s", firstNonEmpty(fix.Name, name), fix.Version)
	}
	var available bool
	if err := json.Unmarshal(raw, &available); err == nil && available {
		return "Run npm audit fix"
	}
	return "No automatic fix; upgrade manually"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
