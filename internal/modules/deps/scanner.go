// Package deps ищет в манифестах зависимостей пакеты с известными уязвимостями.
package deps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

const (
	owaspOutdated = "A06:2021 - Vulnerable and Outdated Components"
	cweOutdated   = "CWE-1104"
)

// Manifest file names this package understands.
const (
	PackageJSON  = "package.json"
	Requirements = "requirements.txt"
	GoMod        = "go.mod"
)

// IsManifest reports whether path is a dependency manifest.
func IsManifest(path string) bool {
	switch filepath.Base(path) {
	case PackageJSON, Requirements, GoMod:
		return true
	}
	return false
}

// ScanFile checks one manifest against the known-vulnerable tables.
func ScanFile(path string) ([]core.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var findings []core.Finding
	switch filepath.Base(path) {
	case PackageJSON:
		findings, err = scanPackageJSON(data)
	case Requirements:
		findings = scanRequirements(string(data))
	case GoMod:
		findings, err = scanGoMod(path, data)
	default:
		return nil, fmt.Errorf("%s is not a dependency manifest", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range findings {
		findings[i].File = path
	}
	return findings, nil
}

func scanPackageJSON(data []byte) ([]core.Finding, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	text := string(data)
	var findings []core.Finding
	for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		for _, name := range sortedKeys(deps) {
			adv, ok := npmAdvisories[name]
			if !ok {
				continue
			}
			version := deps[name]
			// "latest", git-ссылки и т.п. не сравниваем
			if adv.FixedIn != "" && !below(npmVersion(version), adv.FixedIn, false) {
				continue
			}
			f := adv.finding("npm", name, version)
			if i := strings.Index(text, `"`+name+`"`); i >= 0 {
				f.Line = source.LineNumber(text, i)
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)(?:\[[^\]]*\])?\s*(?:(==|>=|~=|<=|<|>|!=)\s*([^\s,;#]+))?`)

func scanRequirements(text string) []core.Finding {
	var findings []core.Finding
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		m := requirementLine.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		name := normalizePyName(m[1])
		adv, ok := pypiAdvisories[name]
		if !ok {
			continue
		}
		// нижняя граница или точная версия: можно сравнить
		if adv.FixedIn != "" && (m[2] == "==" || m[2] == ">=" || m[2] == "~=") {
			if !below(m[3], adv.FixedIn, true) {
				continue
			}
		}
		f := adv.finding("pypi", name, m[3])
		f.Line = i + 1
		f.Match = trimmed
		findings = append(findings, f)
	}
	return findings
}

func scanGoMod(path string, data []byte) ([]core.Finding, error) {
	mf, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, err
	}
	var findings []core.Finding
	for _, req := range mf.Require {
		adv, ok := goAdvisories[req.Mod.Path]
		if !ok {
			continue
		}
		if adv.FixedIn != "" && semver.Compare(req.Mod.Version, "v"+adv.FixedIn) >= 0 {
			continue
		}
		f := adv.finding("go", req.Mod.Path, req.Mod.Version)
		if req.Syntax != nil {
			f.Line = req.Syntax.Start.Line
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// npmVersion срезает ^, ~, >= и т.п. у спецификатора npm.
func npmVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	spec = strings.TrimLeft(spec, "^~>=<v ")
	if i := strings.IndexAny(spec, " |"); i >= 0 {
		spec = spec[:i]
	}
	return spec
}

// below reports whether version is older than fixed. Versions that are not
// semver compare as affected only when unknownAffected is set.
func below(version, fixed string, unknownAffected bool) bool {
	v := "v" + strings.TrimPrefix(version, "v")
	if version == "" || !semver.IsValid(v) {
		return unknownAffected
	}
	return semver.Compare(v, "v"+fixed) < 0
}

func normalizePyName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
