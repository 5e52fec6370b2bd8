package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/rules"
)

// Проверяем только workload-ресурсы, остальные документы пропускаем целиком.
var podSpecPrefix = map[string]string{
	"Pod":         "spec",
	"Deployment":  "spec.template.spec",
	"StatefulSet": "spec.template.spec",
	"DaemonSet":   "spec.template.spec",
	"ReplicaSet":  "spec.template.spec",
	"Job":         "spec.template.spec",
	"CronJob":     "spec.jobTemplate.spec.template.spec",
}

// DocumentCheck inspects a whole document after the structural rules ran.
type DocumentCheck func(doc map[string]any) []core.Finding

var documentChecks = []DocumentCheck{
	checkServiceAccount,
	checkPlaintextSecrets,
	checkNetworkPolicy,
}

// ScanManifest evaluates the structural rules of category against one
// document. Kinds outside the workload allow-list yield nothing.
func ScanManifest(doc map[string]any, category core.Category) []core.Finding {
	kind, _ := doc["kind"].(string)
	prefix, ok := podSpecPrefix[kind]
	if !ok {
		return nil
	}

	meta, _ := asMap(doc["metadata"])
	name, _ := meta["name"].(string)
	namespace, _ := meta["namespace"].(string)

	var findings []core.Finding
	for _, rule := range rules.Default().Structural(category) {
		path := rule.Path
		if rest, isPod := strings.CutPrefix(path, "spec."); isPod {
			path = prefix + "." + rest
		}

		for _, v := range Extract(doc, path) {
			if !rule.Predicate(v.Value, v.Present) {
				continue
			}
			findings = append(findings, core.Finding{
				Category: category,
				Rule:     rule.Name,
				Severity: rule.Severity,
				Message:  rule.Message,
				Fix:      rule.Fix,
				Match:    v.Path + ": " + render(v),
				OWASP:    rule.Taxonomy.OWASP,
				CWE:      rule.Taxonomy.CWE,
				Metadata: map[string]any{
					"kind":      kind,
					"name":      name,
					"namespace": namespace,
					"ruleId":    rule.ID,
					"path":      v.Path,
					"pss":       rule.PSS,
				},
			})
		}
	}

	if category == core.CatKubernetes {
		for _, check := range documentChecks {
			findings = append(findings, check(doc)...)
		}
	}
	return findings
}

func render(v Value) string {
	if !v.Present {
		return "<unset>"
	}
	data, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Sprint(v.Value)
	}
	return string(data)
}

// Режем поток сами: yaml.Decoder после ошибки в одном документе не читает следующие.
var docSeparator = regexp.MustCompile(`(?m)^---[ \t]*(?:#.*)?$`)

// ScanDocuments decodes a multi-document YAML stream and scans every
// document. A document that fails to decode is skipped and its error
// returned; the rest are still scanned.
func ScanDocuments(r io.Reader, category core.Category) ([]core.Finding, []error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, []error{fmt.Errorf("read manifest: %w", err)}
	}

	var (
		findings []core.Finding
		errs     []error
	)
	for i, chunk := range docSeparator.Split(string(data), -1) {
		if len(bytes.TrimSpace([]byte(chunk))) == 0 {
			continue
		}
		var doc map[string]any
		if err := yaml.Unmarshal([]byte(chunk), &doc); err != nil {
			log.Warn().Err(err).Int("document", i).Msg("skip undecodable manifest document")
			errs = append(errs, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		if doc == nil {
			continue
		}
		findings = append(findings, ScanManifest(doc, category)...)
	}
	return findings, errs
}
