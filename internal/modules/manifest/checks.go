package manifest

import (
	"fmt"
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
)

const (
	owaspMisconfig = "A05:2021 - Security Misconfiguration"
	owaspCrypto    = "A02:2021 - Cryptographic Failures"
	owaspAuth      = "A07:2021 - Identification and Authentication Failures"
)

var secretEnvName = regexp.MustCompile(`(?i)password|secret|token|api[_\-]?key`)

// podSpec возвращает spec пода с учетом шаблонов Deployment/CronJob.
func podSpec(doc map[string]any) map[string]any {
	kind, _ := doc["kind"].(string)
	prefix, ok := podSpecPrefix[kind]
	if !ok {
		return nil
	}
	vals := Extract(doc, prefix)
	if len(vals) != 1 || !vals[0].Present {
		return nil
	}
	spec, _ := asMap(vals[0].Value)
	return spec
}

func identity(doc map[string]any) (kind, name string) {
	kind, _ = doc["kind"].(string)
	meta, _ := asMap(doc["metadata"])
	name, _ = meta["name"].(string)
	return kind, name
}

func checkServiceAccount(doc map[string]any) []core.Finding {
	spec := podSpec(doc)
	if spec["automountServiceAccountToken"] != true {
		return nil
	}
	kind, name := identity(doc)
	return []core.Finding{{
		Category: core.CatKubernetes,
		Rule:     "Kubernetes: ServiceAccount",
		Severity: core.SevMedium,
		Message:  "The service account token is mounted automatically",
		Fix:      "Set automountServiceAccountToken: false unless the pod calls the API",
		OWASP:    owaspAuth,
		Metadata: map[string]any{"kind": kind, "name": name},
	}}
}

func checkPlaintextSecrets(doc map[string]any) []core.Finding {
	spec := podSpec(doc)
	containers, _ := spec["containers"].([]any)

	var findings []core.Finding
	for _, c := range containers {
		container, _ := asMap(c)
		cname, _ := container["name"].(string)
		env, _ := container["env"].([]any)

		for _, e := range env {
			envVar, _ := asMap(e)
			if from, ok := asMap(envVar["valueFrom"]); ok && from["secretKeyRef"] != nil {
				continue // ссылка на Secret это нормально
			}
			varName, _ := envVar["name"].(string)
			value, hasValue := envVar["value"]
			if !hasValue || value == nil || value == "" || !secretEnvName.MatchString(varName) {
				continue
			}
			findings = append(findings, core.Finding{
				Category: core.CatKubernetes,
				Rule:     "Kubernetes: Hardcoded Secret",
				Severity: core.SevCritical,
				Message:  fmt.Sprintf("Environment variable %s has a plaintext value", varName),
				Fix:      "Create a Secret and reference it with secretKeyRef",
				OWASP:    owaspCrypto,
				CWE:      "CWE-798",
				Metadata: map[string]any{"containerName": cname, "envVarName": varName},
			})
		}
	}
	return findings
}

// Кластер целиком мы не видим, поэтому это только совет.
func checkNetworkPolicy(doc map[string]any) []core.Finding {
	kind, name := identity(doc)
	switch kind {
	case "Deployment", "StatefulSet", "Pod":
	default:
		return nil
	}
	return []core.Finding{{
		Category: core.CatKubernetes,
		Rule:     "Kubernetes: Best Practice",
		Severity: core.SevLow,
		Message:  "Restrict pod traffic with a NetworkPolicy",
		Fix:      "Create a NetworkPolicy with ingress/egress rules",
		OWASP:    owaspMisconfig,
		Metadata: map[string]any{"kind": kind, "name": name},
	}}
}
