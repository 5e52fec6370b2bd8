package rules

import (
	"strings"

	"github.com/devos-os/d-scan/internal/core"
)

// Pod Security Standards levels.
const (
	PSSBaseline   = "baseline"
	PSSRestricted = "restricted"
)

func isTrue(v any, ok bool) bool { return ok && v == true }
func notTrue(v any, ok bool) bool { return !ok || v != true }

func kubernetesRules() []StructuralRule {
	tax := Taxonomy{OWASP: owaspMisconfig, CWE: "CWE-250"}
	rule := func(id, path string, sev core.Severity, pss string, pred func(any, bool) bool, msg, fix string) StructuralRule {
		return StructuralRule{
			ID:        "K8S" + id,
			Name:      "Kubernetes: K8S" + id,
			Path:      path,
			Predicate: pred,
			Severity:  sev,
			Message:   msg,
			Fix:       fix,
			Taxonomy:  tax,
			PSS:       pss,
		}
	}

	return []StructuralRule{
		rule("001", "spec.containers[*].securityContext.privileged", core.SevCritical, PSSBaseline, isTrue,
			"Privileged containers get full host access",
			"Set privileged: false or remove it"),
		rule("002", "spec.containers[*].securityContext.runAsNonRoot", core.SevHigh, PSSRestricted, notTrue,
			"The container may run as root",
			"Set runAsNonRoot: true"),
		rule("003", "spec.hostNetwork", core.SevHigh, PSSBaseline, isTrue,
			"hostNetwork bypasses network isolation",
			"Remove hostNetwork or set it to false"),
		rule("004", "spec.hostPID", core.SevHigh, PSSBaseline, isTrue,
			"Sharing the host PID namespace is dangerous",
			"Remove hostPID"),
		rule("005", "spec.hostIPC", core.SevHigh, PSSBaseline, isTrue,
			"Sharing the host IPC namespace is dangerous",
			"Remove hostIPC"),
		rule("006", "spec.containers[*].securityContext.capabilities.add", core.SevCritical, PSSBaseline, dangerousCaps,
			"Dangerous Linux capabilities are added",
			"Add only the minimum capabilities needed"),
		rule("007", "spec.containers[*].resources.limits", core.SevMedium, "", missingLimits,
			"No resource limits (DoS risk)",
			"Set resources.limits.cpu and memory"),
		rule("008", "spec.containers[*].securityContext.allowPrivilegeEscalation", core.SevHigh, PSSRestricted, isTrue,
			"Privilege escalation is allowed",
			"Set allowPrivilegeEscalation: false"),
		rule("009", "spec.containers[*].securityContext.readOnlyRootFilesystem", core.SevMedium, PSSRestricted, notTrue,
			"The root filesystem is writable",
			"Set readOnlyRootFilesystem: true"),
		rule("010", "spec.volumes[*].hostPath", core.SevHigh, PSSBaseline,
			func(_ any, ok bool) bool { return ok },
			"hostPath volumes expose the host filesystem",
			"Use a PVC, ConfigMap or Secret volume instead"),
		rule("011", "spec.containers[*].image", core.SevMedium, "",
			func(v any, ok bool) bool {
				s, isStr := v.(string)
				return ok && isStr && !strings.Contains(s, ":")
			},
			"Image tag is not set (latest is used)",
			"Use an explicit version tag, e.g. nginx:1.21.0"),
		rule("012", "spec.containers[*].image", core.SevMedium, "",
			func(v any, ok bool) bool {
				s, isStr := v.(string)
				return ok && isStr && strings.HasSuffix(s, ":latest")
			},
			"The :latest tag is unpredictable",
			"Use an explicit version tag"),
		rule("013", "metadata.namespace", core.SevLow, "",
			func(v any, ok bool) bool { return ok && v == "default" },
			"The default namespace is used",
			"Create and use a dedicated namespace"),
	}
}

var dangerous = map[string]bool{"SYS_ADMIN": true, "NET_ADMIN": true, "SYS_PTRACE": true}

func dangerousCaps(v any, ok bool) bool {
	list, isList := v.([]any)
	if !ok || !isList {
		return false
	}
	for _, c := range list {
		if s, _ := c.(string); dangerous[s] {
			return true
		}
	}
	return false
}

func missingLimits(v any, ok bool) bool {
	if !ok || v == nil {
		return true
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return true
	}
	_, hasMem := m["memory"]
	_, hasCPU := m["cpu"]
	return !hasMem && !hasCPU
}
