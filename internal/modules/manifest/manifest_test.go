package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/devos-os/d-scan/internal/core"
)

const threeContainerPod = `
apiVersion: v1
kind: Pod
metadata:
  name: web
  namespace: shop
spec:
  containers:
    - name: a
      image: nginx:1.25
    - name: b
      image: busybox:1.36
      securityContext:
        privileged: true
    - name: c
      image: redis:7
`

func decode(t *testing.T, src string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc
}

func byRule(findings []core.Finding, id string) []core.Finding {
	var out []core.Finding
	for _, f := range findings {
		if f.Metadata["ruleId"] == id {
			out = append(out, f)
		}
	}
	return out
}

func TestExtractFansOut(t *testing.T) {
	doc := decode(t, threeContainerPod)
	vals := Extract(doc, "spec.containers[*].securityContext.privileged")
	require.Len(t, vals, 3)

	assert.Equal(t, "spec.containers[0].securityContext.privileged", vals[0].Path)
	assert.False(t, vals[0].Present)
	assert.Equal(t, "spec.containers[1].securityContext.privileged", vals[1].Path)
	assert.True(t, vals[1].Present)
	assert.Equal(t, true, vals[1].Value)
	assert.False(t, vals[2].Present)
}

func TestExtractEdgeCases(t *testing.T) {
	doc := decode(t, threeContainerPod)

	// нет списка: ни одной ветки
	assert.Empty(t, Extract(doc, "spec.volumes[*].hostPath"))

	// нет ключа: одна ветка с Present=false
	vals := Extract(doc, "spec.hostNetwork")
	require.Len(t, vals, 1)
	assert.False(t, vals[0].Present)
	assert.Equal(t, "spec.hostNetwork", vals[0].Path)

	// ключ перед [*] отсутствует: тоже ни одной ветки
	assert.Empty(t, Extract(map[string]any{}, "spec.containers[*].image"))
	assert.Empty(t, Extract(doc, "spec.template.spec.containers[*].image"))

	vals = Extract(doc, "metadata.name")
	require.Len(t, vals, 1)
	assert.Equal(t, "web", vals[0].Value)
}

func TestPrivilegedContainerYieldsOneCritical(t *testing.T) {
	findings := ScanManifest(decode(t, threeContainerPod), core.CatKubernetes)

	critical := core.FilterAtOrAbove(findings, core.SevCritical)
	require.Len(t, critical, 1)
	f := critical[0]
	assert.Equal(t, "K8S001", f.Metadata["ruleId"])
	assert.Equal(t, "spec.containers[1].securityContext.privileged", f.Metadata["path"])
	assert.Equal(t, "Pod", f.Metadata["kind"])
	assert.Equal(t, "web", f.Metadata["name"])
	assert.Equal(t, "shop", f.Metadata["namespace"])
	assert.Equal(t, "baseline", f.Metadata["pss"])
	assert.Equal(t, "spec.containers[1].securityContext.privileged: true", f.Match)
}

func TestAbsentValuesReachPredicates(t *testing.T) {
	findings := ScanManifest(decode(t, threeContainerPod), core.CatKubernetes)

	// runAsNonRoot и limits нигде не заданы
	assert.Len(t, byRule(findings, "K8S002"), 3)
	assert.Len(t, byRule(findings, "K8S007"), 3)
	assert.Empty(t, byRule(findings, "K8S003"))
	assert.Empty(t, byRule(findings, "K8S010"))
}

func TestWorkloadWithoutTemplateHasNoContainerFindings(t *testing.T) {
	doc := decode(t, `
kind: Deployment
metadata:
  name: web
spec:
  replicas: 1
`)
	findings := ScanManifest(doc, core.CatKubernetes)
	for _, f := range findings {
		path, _ := f.Metadata["path"].(string)
		assert.NotContains(t, path, "[*]", "rule %v", f.Metadata["ruleId"])
		assert.NotContains(t, path, "containers")
	}
	assert.Empty(t, byRule(findings, "K8S002"))
	assert.Empty(t, byRule(findings, "K8S007"))
	assert.Empty(t, byRule(findings, "K8S009"))
}

func TestUnlistedKindSkipped(t *testing.T) {
	doc := decode(t, `
kind: ConfigMap
metadata:
  name: cfg
  namespace: default
spec:
  containers:
    - securityContext:
        privileged: true
`)
	assert.Empty(t, ScanManifest(doc, core.CatKubernetes))
}

func TestWorkloadTemplateIsNormalized(t *testing.T) {
	doc := decode(t, `
kind: CronJob
metadata:
  name: nightly
  namespace: default
spec:
  jobTemplate:
    spec:
      template:
        spec:
          hostPID: true
          containers:
            - name: job
              image: alpine
              env:
                - name: DB_PASSWORD
                  value: hunter22
                - name: API_TOKEN
                  valueFrom:
                    secretKeyRef:
                      name: s
                      key: token
`)
	findings := ScanManifest(doc, core.CatKubernetes)

	pid := byRule(findings, "K8S004")
	require.Len(t, pid, 1)
	assert.Equal(t, "spec.jobTemplate.spec.template.spec.hostPID", pid[0].Metadata["path"])

	assert.Len(t, byRule(findings, "K8S011"), 1)
	assert.Len(t, byRule(findings, "K8S013"), 1)

	var secrets []core.Finding
	for _, f := range findings {
		if f.Rule == "Kubernetes: Hardcoded Secret" {
			secrets = append(secrets, f)
		}
	}
	require.Len(t, secrets, 1)
	assert.Equal(t, "DB_PASSWORD", secrets[0].Metadata["envVarName"])

	// CronJob не получает совет про NetworkPolicy
	for _, f := range findings {
		assert.NotEqual(t, "Kubernetes: Best Practice", f.Rule)
	}
}

func TestServiceAccountAutomount(t *testing.T) {
	doc := decode(t, `
kind: Deployment
metadata: {name: api}
spec:
  template:
    spec:
      automountServiceAccountToken: true
      containers:
        - name: api
          image: api:latest
`)
	findings := ScanManifest(doc, core.CatKubernetes)
	var rulesSeen []string
	for _, f := range findings {
		rulesSeen = append(rulesSeen, f.Rule)
	}
	assert.Contains(t, rulesSeen, "Kubernetes: ServiceAccount")
	assert.Contains(t, rulesSeen, "Kubernetes: Best Practice")
	assert.Len(t, byRule(findings, "K8S012"), 1)
}

func TestScanDocumentsSkipsBrokenDocument(t *testing.T) {
	stream := strings.Join([]string{
		threeContainerPod,
		"kind: Pod\nspec: [unclosed\n",
		"kind: Service\nmetadata: {name: svc}\n",
		threeContainerPod,
	}, "\n---\n")

	findings, errs := ScanDocuments(strings.NewReader(stream), core.CatKubernetes)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "document 1")

	assert.Len(t, core.FilterAtOrAbove(findings, core.SevCritical), 2)
}
