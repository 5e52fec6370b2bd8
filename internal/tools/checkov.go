package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/runner"
)

type CheckovCheck struct {
	CheckID       string  `json:"check_id"`
	BCCheckID     string  `json:"bc_check_id"`
	CheckName     string  `json:"check_name"`
	FilePath      string  `json:"file_path"`
	FileLineRange []int   `json:"file_line_range"`
	Resource      string  `json:"resource"`
	Guideline     string  `json:"guideline"`
	Severity      string  `json:"severity"`
	CodeBlock     [][]any `json:"code_block"`
}

type CheckovReport struct {
	CheckType string `json:"check_type"`
	Results   struct {
		FailedChecks []CheckovCheck `json:"failed_checks"`
	} `json:"results"`
}

type Checkov struct{ base }

func NewCheckov(r runner.Runner, lookup LookupFunc) *Checkov {
	return &Checkov{newBase(r, lookup)}
}

func (c *Checkov) Name() string { return "checkov" }

// Scan runs checkov on Dockerfile, Kubernetes and Terraform files; anything
// else yields nil.
func (c *Checkov) Scan(ctx context.Context, code, filename string) ([]core.Finding, error) {
	fw := framework(filename)
	if fw == "" {
		return nil, nil
	}
	bin := c.resolve(c.Name())
	if bin == "" {
		return nil, nil
	}

	ws, err := newWorkspace("checkov-", filename, code)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	// checkov выходит с 1, если есть проваленные проверки, это норм
	out, err := runner.Run(ctx, c.runner, bin, "--framework", fw, "--output", "json", "--quiet", "--file", ws.file)
	if err != nil {
		return nil, fmt.Errorf("checkov: %w", err)
	}
	if out.ExitCode > 1 {
		return nil, fmt.Errorf("checkov: exit %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}

	reports, err := decodeCheckov(out.Stdout)
	if err != nil {
		return nil, fmt.Errorf("checkov output: %w", err)
	}

	var findings []core.Finding
	for _, rep := range reports {
		for _, check := range rep.Results.FailedChecks {
			findings = append(findings, convertCheckov(check, fw, filename))
		}
	}
	return findings, nil
}

// checkov печатает объект для одного фреймворка и массив для нескольких.
func decodeCheckov(data []byte) ([]CheckovReport, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var many []CheckovReport
		err := json.Unmarshal(data, &many)
		return many, err
	}
	var one CheckovReport
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []CheckovReport{one}, nil
}

func convertCheckov(check CheckovCheck, fw, filename string) core.Finding {
	line := 0
	if len(check.FileLineRange) > 0 {
		line = check.FileLineRange[0]
	}
	name := check.CheckName
	if name == "" {
		name = check.CheckID
	}
	fix := check.Guideline
	if fix == "" {
		fix = "See the checkov documentation for remediation"
	}
	return core.Finding{
		Category: core.CatExternal,
		Rule:     name,
		Severity: checkovSeverity(check),
		Message:  check.CheckID + ": " + check.CheckName,
		Fix:      fix,
		File:     filename,
		Line:     line,
		Match:    codeSnippet(check.CodeBlock),
		OWASP:    owaspMisconfig,
		CWE:      cweForID(check.CheckID),
		Metadata: map[string]any{
			"tool":      "checkov",
			"checkId":   check.CheckID,
			"bcCheckId": check.BCCheckID,
			"resource":  check.Resource,
			"framework": fw,
		},
	}
}

// checkov не всегда отдает severity, тогда угадываем по id
func checkovSeverity(check CheckovCheck) core.Severity {
	if sev, ok := mapSeverity(check.Severity); ok {
		return sev
	}
	id := strings.ToLower(check.CheckID)
	switch {
	case containsAnyOf(id, "secret", "password", "root", "privilege"):
		return core.SevCritical
	case containsAnyOf(id, "public", "encryption", "network", "security-group"):
		return core.SevHigh
	}
	return core.SevMedium
}

// code_block это список пар [номер строки, текст]
func codeSnippet(block [][]any) string {
	lines := make([]string, 0, len(block))
	for _, pair := range block {
		if len(pair) < 2 {
			continue
		}
		if s, ok := pair[1].(string); ok {
			lines = append(lines, strings.TrimRight(s, "\n"))
		}
	}
	return strings.Join(lines, "\n")
}
