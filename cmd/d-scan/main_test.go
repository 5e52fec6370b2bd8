package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devos-os/d-scan/internal/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const riskyDockerfile = "FROM ubuntu:latest\nRUN apt-get update && apt-get install -y curl\nADD app.tar.gz /app\n"

type export struct {
	Summary  core.Summary   `json:"summary"`
	Findings []core.Finding `json:"findings"`
}

func TestIacJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Dockerfile", riskyDockerfile)

	out, err := execute(t, "iac", path, "--format", "json", "--fail-on", "none")
	require.NoError(t, err)

	var rep export
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.NotEmpty(t, rep.Findings)
	assert.Equal(t, len(rep.Findings), rep.Summary.Total())
	for _, f := range rep.Findings {
		assert.Equal(t, path, f.File)
	}
}

func TestIacBadType(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "x")
	_, err := execute(t, "iac", path)
	assert.ErrorContains(t, err, "--type")

	_, err = execute(t, "iac", path, "--type", "secrets")
	assert.ErrorContains(t, err, "not an IaC type")
}

func TestScanFailOnExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/app.js", `const apiKey = "sk_live_abcdefghij1234567890";`+"\n")

	_, err := execute(t, "scan", dir, "--fail-on", "high")
	var code exitCode
	require.True(t, errors.As(err, &code), "got %v", err)
	assert.Equal(t, exitCode(1), code)

	// тот же код, но порог выше любой находки
	_, err = execute(t, "scan", dir, "--fail-on", "none")
	assert.NoError(t, err)
}

func TestScanSeverityFiltersOutputOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/app.js", `const apiKey = "sk_live_abcdefghij1234567890";`+"\n")

	out, err := execute(t, "scan", dir, "--format", "json", "--severity", "critical", "--fail-on", "high")
	var code exitCode
	require.True(t, errors.As(err, &code), "fail-on must see findings hidden by --severity")

	var rep export
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	for _, f := range rep.Findings {
		assert.Equal(t, core.SevCritical, f.Severity)
	}
}

func TestScanRejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "scan", dir, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "scan", dir, "--severity", "urgent")
	assert.Error(t, err)

	_, err = execute(t, "scan", dir, "--category", "sqli")
	assert.ErrorContains(t, err, "unknown category")
}

func TestScanWritesHTMLReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.tf", `resource "aws_s3_bucket" "b" {
  acl = "public-read"
}
`)
	report := filepath.Join(t.TempDir(), "out.html")

	_, err := execute(t, "scan", dir, "--report", report, "--fail-on", "none")
	require.NoError(t, err)
	assert.FileExists(t, report)
}

func TestSandboxEntry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "code.txt", `const apiKey = "sk_live_abcdefghij1234567890";`)
	t.Setenv("SCAN_CODE_FILE", path)
	t.Setenv("SCAN_LANGUAGE", "javascript")

	out, err := execute(t, "sandbox", "entry")
	require.NoError(t, err)

	var rep struct {
		Success     bool `json:"success"`
		IssuesCount int  `json:"issuesCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Success)
	assert.Positive(t, rep.IssuesCount)
}

func TestSandboxEntryMissingFile(t *testing.T) {
	t.Setenv("SCAN_CODE_FILE", filepath.Join(t.TempDir(), "absent"))
	_, err := execute(t, "sandbox", "entry")
	assert.Equal(t, exitCode(1), err)
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	cmd := newRootCmd()
	t.Setenv("HOME", home)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(home, ".config", "devos", "d-scan.env"))
	assert.Contains(t, out.String(), "Created default config")
}
