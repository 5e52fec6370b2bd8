// Package container проверяет Dockerfile и Terraform как целые документы.
package container

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/code"
	"github.com/devos-os/d-scan/internal/modules/manifest"
	"github.com/devos-os/d-scan/internal/rules"
	"github.com/devos-os/d-scan/internal/source"
)

// DetectCategory guesses the IaC category from the file name. YAML files are
// treated as Kubernetes manifests.
func DetectCategory(path string) (core.Category, bool) {
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile.") || ext == ".dockerfile":
		return core.CatDockerfile, true
	case ext == ".yaml" || ext == ".yml":
		return core.CatKubernetes, true
	case ext == ".tf" || ext == ".tfvars":
		return core.CatTerraform, true
	}
	return "", false
}

// ScanFile reads an IaC file and scans it as category. An empty category
// means detect from the file name.
func ScanFile(path string, category core.Category) ([]core.Finding, error) {
	if category == "" {
		detected, ok := DetectCategory(path)
		if !ok {
			return nil, fmt.Errorf("unsupported IaC file %s", path)
		}
		category = detected
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &code.InputError{Path: path, Err: err}
	}

	var findings []core.Finding
	if category == core.CatKubernetes {
		var errs []error
		findings, errs = manifest.ScanDocuments(bytes.NewReader(data), category)
		if len(findings) == 0 && len(errs) > 0 {
			return nil, &code.InputError{Path: path, Err: errs[0]}
		}
	} else {
		findings = ScanDocument(string(data), category)
	}

	for i := range findings {
		findings[i].File = path
	}
	return findings, nil
}

// ScanDocument runs the lexical rules, the absence rules and the extra
// checks of category over one Dockerfile or Terraform document.
func ScanDocument(text string, category core.Category) []core.Finding {
	var lang source.Language
	var extra func(string) []core.Finding

	switch category {
	case core.CatDockerfile:
		lang, extra = source.LangDockerfile, dockerfileChecks
	case core.CatTerraform:
		lang, extra = source.LangTerraform, terraformChecks
	default:
		return nil
	}

	reg := rules.Default()
	findings := code.Apply(text, reg.For(category, lang), lang, code.Options{})

	// Absence-правила: один раз на документ
	for _, r := range reg.Absence(category) {
		if !r.Present.MatchString(text) {
			findings = append(findings, code.NewFinding(r.Rule, 0, ""))
		}
	}

	return append(findings, extra(text)...)
}

var (
	fromLine     = regexp.MustCompile(`(?m)^FROM`)
	copyOrAdd    = regexp.MustCompile(`(?i)COPY|ADD`)
	archiveOrURL = regexp.MustCompile(`\.tar|\.tgz|\.tar\.gz|https?://`)
	s3Backend    = regexp.MustCompile(`(?s)backend\s+"s3"\s*\{([^}]+)\}`)
)

func dockerfileChecks(text string) []core.Finding {
	var findings []core.Finding

	if len(fromLine.FindAllStringIndex(text, -1)) == 1 && copyOrAdd.MatchString(text) {
		findings = append(findings, core.Finding{
			Category: core.CatDockerfile,
			Rule:     "Dockerfile: Best Practice",
			Severity: core.SevLow,
			Message:  "A multi-stage build would shrink the final image",
			Fix:      "Split build and runtime into separate stages",
			OWASP:    "A05:2021 - Security Misconfiguration",
		})
	}

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "ADD ") && !archiveOrURL.MatchString(trimmed) {
			findings = append(findings, core.Finding{
				Category: core.CatDockerfile,
				Rule:     "Dockerfile: Best Practice",
				Severity: core.SevLow,
				Message:  "Use COPY instead of ADD; ADD also unpacks archives and fetches URLs",
				Fix:      "Replace ADD with COPY",
				Line:     i + 1,
				Match:    trimmed,
			})
		}
	}
	return findings
}

func terraformChecks(text string) []core.Finding {
	loc := s3Backend.FindStringSubmatchIndex(text)
	if loc == nil || strings.Contains(text[loc[2]:loc[3]], "encrypt") {
		return nil
	}
	return []core.Finding{{
		Category: core.CatTerraform,
		Rule:     "Terraform: Backend Security",
		Severity: core.SevHigh,
		Message:  "The S3 backend does not enable encryption",
		Fix:      "Add encrypt = true to the s3 backend block",
		Line:     source.LineNumber(text, loc[0]),
		OWASP:    "A02:2021 - Cryptographic Failures",
	}}
}
