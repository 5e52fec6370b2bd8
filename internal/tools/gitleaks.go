package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/secrets"
	"github.com/devos-os/d-scan/internal/runner"
)

// GitleaksResult is one entry of gitleaks' JSON report.
type GitleaksResult struct {
	Description string   `json:"Description"`
	File        string   `json:"File"`
	StartLine   int      `json:"StartLine"`
	Secret      string   `json:"Secret"`
	Match       string   `json:"Match"`
	RuleID      string   `json:"RuleID"`
	Entropy     float64  `json:"Entropy"`
	Tags        []string `json:"Tags"`
}

type Gitleaks struct{ base }

func NewGitleaks(r runner.Runner, lookup LookupFunc) *Gitleaks {
	return &Gitleaks{newBase(r, lookup)}
}

func (g *Gitleaks) Name() string { return "gitleaks" }

func (g *Gitleaks) Scan(ctx context.Context, code, filename string) ([]core.Finding, error) {
	bin := g.resolve(g.Name())
	if bin == "" {
		return nil, nil
	}

	ws, err := newWorkspace("gitleaks-", filename, code)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	report := filepath.Join(ws.dir, "report.json")
	// --exit-code 0: нам нужен отчет, а не код возврата
	out, err := runner.Run(ctx, g.runner, bin,
		"detect", "--no-git", "--source", ws.file,
		"--report-format", "json", "--report-path", report,
		"--exit-code", "0")
	if err != nil {
		return nil, fmt.Errorf("gitleaks: %w", err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("gitleaks: exit %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}

	data, err := os.ReadFile(report)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gitleaks report: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var results []GitleaksResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("gitleaks report: %w", err)
	}

	findings := make([]core.Finding, 0, len(results))
	for _, res := range results {
		findings = append(findings, convertGitleaks(res, filename))
	}
	return findings, nil
}

func convertGitleaks(res GitleaksResult, filename string) core.Finding {
	masked := secrets.Mask(res.Secret)
	desc := res.Description
	if desc == "" {
		desc = "Secret detected"
	}
	rule := res.RuleID
	if rule == "" {
		rule = "Hardcoded Secret"
	}
	return core.Finding{
		Category: core.CatExternal,
		Rule:     rule,
		Severity: gitleaksSeverity(res.RuleID),
		Message:  desc + ": " + masked,
		Fix:      gitleaksFix(res.RuleID),
		File:     filename,
		Line:     res.StartLine,
		Match:    masked,
		OWASP:    owaspAuth,
		CWE:      "CWE-798",
		Metadata: map[string]any{
			"tool":    "gitleaks",
			"ruleId":  res.RuleID,
			"entropy": res.Entropy,
			"tags":    res.Tags,
		},
	}
}

func gitleaksSeverity(ruleID string) core.Severity {
	id := strings.ToLower(ruleID)
	switch {
	case containsAnyOf(id, "aws", "private-key", "stripe", "google-api-key"):
		return core.SevCritical
	case containsAnyOf(id, "api-key", "token", "secret"):
		return core.SevHigh
	}
	return core.SevMedium
}

func gitleaksFix(ruleID string) string {
	id := strings.ToLower(ruleID)
	switch {
	case strings.Contains(id, "aws"):
		return "Use AWS Secrets Manager or environment variables with IAM roles"
	case strings.Contains(id, "private-key"):
		return "Store private keys in a vault (HashiCorp Vault, AWS KMS) and rotate them"
	case strings.Contains(id, "google"):
		return "Use Google Cloud Secret Manager and restrict the key by IP or domain"
	case strings.Contains(id, "github"):
		return "Use GitHub Secrets for Actions or environment variables"
	}
	return "Revoke this secret and load it from the environment or a secrets manager"
}
