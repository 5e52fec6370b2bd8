package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/runner"
)

// Структуры для парсинга JSON вывода Trivy
type TrivyReport struct {
	Results []struct {
		Target          string `json:"Target"`
		Vulnerabilities []struct {
			VulnerabilityID  string `json:"VulnerabilityID"`
			PkgName          string `json:"PkgName"`
			InstalledVersion string `json:"InstalledVersion"`
			FixedVersion     string `json:"FixedVersion"`
			Severity         string `json:"Severity"`
			Title            string `json:"Title"`
			Description      string `json:"Description"`
			PrimaryURL       string `json:"PrimaryURL"`
		} `json:"Vulnerabilities"`
		Misconfigurations []struct {
			ID            string `json:"ID"`
			Title         string `json:"Title"`
			Severity      string `json:"Severity"`
			Description   string `json:"Description"`
			Message       string `json:"Message"`
			Resolution    string `json:"Resolution"`
			PrimaryURL    string `json:"PrimaryURL"`
			CauseMetadata struct {
				StartLine int `json:"StartLine"`
			} `json:"CauseMetadata"`
		} `json:"Misconfigurations"`
	} `json:"Results"`
}

type Trivy struct{ base }

func NewTrivy(r runner.Runner, lookup LookupFunc) *Trivy {
	return &Trivy{newBase(r, lookup)}
}

func (t *Trivy) Name() string { return "trivy" }

// Scan checks a single IaC file for misconfigurations.
func (t *Trivy) Scan(ctx context.Context, code, filename string) ([]core.Finding, error) {
	if framework(filename) == "" {
		return nil, nil
	}
	bin := t.resolve(t.Name())
	if bin == "" {
		return nil, nil
	}

	ws, err := newWorkspace("trivy-", filename, code)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	findings, err := t.run(ctx, bin, "config", ws.file)
	for i := range findings {
		findings[i].File = filename
	}
	return findings, err
}

// ScanDir runs trivy over a whole tree: dependency CVEs plus IaC config.
func (t *Trivy) ScanDir(ctx context.Context, root string) ([]core.Finding, error) {
	bin := t.resolve(t.Name())
	if bin == "" {
		return nil, nil
	}
	return t.run(ctx, bin, "vuln,config", root)
}

func (t *Trivy) run(ctx context.Context, bin, scanners, target string) ([]core.Finding, error) {
	out, err := runner.Run(ctx, t.runner, bin, "fs", "--scanners", scanners, "--format", "json", "--quiet", target)
	if err != nil {
		return nil, fmt.Errorf("trivy: %w", err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("trivy: exit %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	if strings.TrimSpace(string(out.Stdout)) == "" {
		return nil, nil
	}

	var report TrivyReport
	if err := json.Unmarshal(out.Stdout, &report); err != nil {
		return nil, fmt.Errorf("trivy output: %w", err)
	}

	// Конвертируем результаты Trivy в формат d-scan
	var findings []core.Finding
	for _, res := range report.Results {
		for _, mis := range res.Misconfigurations {
			sev, _ := mapSeverity(mis.Severity)
			msg := firstNonEmpty(mis.Message, mis.Title, mis.Description)
			findings = append(findings, core.Finding{
				Category: core.CatExternal,
				Rule:     mis.ID,
				Severity: orLow(sev),
				Message:  msg,
				Fix:      firstNonEmpty(mis.Resolution, "See the trivy documentation for remediation"),
				File:     res.Target,
				Line:     mis.CauseMetadata.StartLine,
				OWASP:    owaspMisconfig,
				CWE:      cweForID(mis.ID),
				Metadata: map[string]any{"tool": "trivy", "scanType": "config", "id": mis.ID, "primaryUrl": mis.PrimaryURL},
			})
		}
		for _, vuln := range res.Vulnerabilities {
			sev, _ := mapSeverity(vuln.Severity)
			fix := fmt.Sprintf("Update %s (no fixed version available yet)", vuln.PkgName)
			if vuln.FixedVersion != "" {
				fix = fmt.Sprintf("Update %s from %s to %s", vuln.PkgName, vuln.InstalledVersion, vuln.FixedVersion)
			}
			findings = append(findings, core.Finding{
				Category: core.CatExternal,
				Rule:     "Vulnerable Dependency: " + vuln.PkgName,
				Severity: orLow(sev),
				Message:  vuln.VulnerabilityID + ": " + firstNonEmpty(vuln.Title, vuln.Description),
				Fix:      fix,
				File:     res.Target,
				OWASP:    owaspComponents,
				CWE:      "CWE-1035",
				Metadata: map[string]any{
					"tool":             "trivy",
					"scanType":         "vuln",
					"cve":              vuln.VulnerabilityID,
					"package":          vuln.PkgName,
					"installedVersion": vuln.InstalledVersion,
					"fixedVersion":     vuln.FixedVersion,
				},
			})
		}
	}
	return findings, nil
}

func orLow(s core.Severity) core.Severity {
	if !s.Valid() {
		return core.SevLow
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
