package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devos-os/d-scan/internal/core"
)

func ruleIDs(findings []core.Finding) map[string]int {
	ids := map[string]int{}
	for _, f := range findings {
		if id, ok := f.Metadata["ruleId"].(string); ok {
			ids[id]++
		} else {
			ids[f.Rule]++
		}
	}
	return ids
}

const riskyDockerfile = `FROM node
USER root
RUN apt-get update
RUN apt-get install -y curl
RUN curl https://get.example.sh | bash
EXPOSE 22
ADD app.js /app/
# EXPOSE 22
`

func TestDockerfileRules(t *testing.T) {
	findings := ScanDocument(riskyDockerfile, core.CatDockerfile)
	ids := ruleIDs(findings)

	for _, id := range []string{"DF001", "DF002", "DF003", "DF005", "DF006", "DF010", "DF012"} {
		assert.Equal(t, 1, ids[id], id)
	}
	// закомментированный EXPOSE не считается
	assert.Equal(t, 1, ids["DF004"])
	assert.Equal(t, 2, ids["Dockerfile: Best Practice"])

	for _, f := range findings {
		switch f.Metadata["ruleId"] {
		case "DF004":
			assert.Equal(t, 6, f.Line)
			assert.Equal(t, "EXPOSE 22", f.Match)
			assert.Equal(t, core.SevCritical, f.Severity)
		case "DF003":
			assert.Zero(t, f.Line)
			assert.Equal(t, "CWE-250", f.CWE)
			assert.Equal(t, "4.3", f.Metadata["cisDockerBenchmark"])
		}
	}
}

func TestDockerfileRootContradictionIsKept(t *testing.T) {
	// USER root: срабатывают и DF002, и DF003, без слияния
	ids := ruleIDs(ScanDocument("FROM alpine:3.19\nUSER root\n", core.CatDockerfile))
	assert.Equal(t, 1, ids["DF002"])
	assert.Equal(t, 1, ids["DF003"])
}

func TestCleanDockerfile(t *testing.T) {
	text := `FROM node:20-alpine AS build
COPY . .
RUN npm ci
FROM node:20-alpine
COPY --from=build /app /app
USER node
HEALTHCHECK CMD wget -q --secure-protocol=TLSv1_2 -O- http://localhost:3000/health
`
	assert.Empty(t, ScanDocument(text, core.CatDockerfile))
}

const bucketTF = `resource "aws_s3_bucket" "logs" {
  bucket = "logs"
  acl    = "public-read"
}

terraform {
  backend "s3" {
    bucket = "state"
  }
}
`

func TestTerraformRules(t *testing.T) {
	findings := ScanDocument(bucketTF, core.CatTerraform)
	ids := ruleIDs(findings)

	for _, id := range []string{"TF002", "TF005", "TF009", "TF016", "Terraform: Backend Security"} {
		assert.Equal(t, 1, ids[id], id)
	}
	for _, f := range findings {
		switch f.Metadata["ruleId"] {
		case "TF002":
			assert.Equal(t, 1, f.Line)
			assert.LessOrEqual(t, len(f.Match), 80)
		}
		if f.Rule == "Terraform: Backend Security" {
			assert.Equal(t, 7, f.Line)
		}
	}
}

func TestTerraformEncryptedBucket(t *testing.T) {
	text := `terraform {
  required_providers {
    aws = { source = "hashicorp/aws", version = "~> 5.0" }
  }
}
// resource "aws_db_instance" "old" {}
resource "aws_db_instance" "db" {
  storage_encrypted = true
}
`
	assert.Empty(t, ScanDocument(text, core.CatTerraform))
}

func TestDetectCategory(t *testing.T) {
	tests := map[string]core.Category{
		"Dockerfile":          core.CatDockerfile,
		"build/Dockerfile.ci": core.CatDockerfile,
		"k8s/deploy.yaml":     core.CatKubernetes,
		"infra/main.tf":       core.CatTerraform,
	}
	for path, want := range tests {
		got, ok := DetectCategory(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := DetectCategory("main.go")
	assert.False(t, ok)
}

func TestScanFileSetsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte("FROM alpine:3.19\nUSER app\nHEALTHCHECK CMD true\nEXPOSE 22\n"), 0o600))

	findings, err := ScanFile(path, "")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, path, findings[0].File)
	assert.Equal(t, "DF004", findings[0].Metadata["ruleId"])

	_, err = ScanFile(filepath.Join(dir, "notes.txt"), "")
	assert.Error(t, err)
}
