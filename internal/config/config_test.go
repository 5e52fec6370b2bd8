package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devos-os/d-scan/internal/core"
)

// isolate уводит HOME и cwd во временные папки, чтобы не подхватить чужой конфиг.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.SevLow, cfg.MinSeverity())

	level, enabled, err := cfg.FailOn()
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, core.SevCritical, level)
	assert.Len(t, cfg.Categories(), 6)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	yml := `
scan:
  categories: [secrets, injection]
  exclude: ["dist/**"]
severity:
  min: medium
  fail_on: high
sandbox:
  timeout: 45s
  memory_mb: 256
tools:
  gitleaks: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []core.Category{core.CatSecrets, core.CatInjection}, cfg.Categories())
	assert.Equal(t, core.SevMedium, cfg.MinSeverity())
	assert.Equal(t, 45*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, 256, cfg.Sandbox.MemoryMB)
	assert.Equal(t, 0.5, cfg.Sandbox.CPUs) // не задано в файле, остался дефолт
	assert.True(t, cfg.Tools.Gitleaks)
	assert.False(t, cfg.Tools.Trivy)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("nope.yaml")
	assert.Error(t, err)

	// без явного пути отсутствие файла не ошибка
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "low", cfg.Severity.Min)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("severity:\n  min: medium\n"), 0o644))
	t.Setenv("DSCAN_SEVERITY", "high")
	t.Setenv("DSCAN_SANDBOX_TIMEOUT", "5s")
	t.Setenv("DSCAN_TOOLS", "trivy, checkov, npm")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, core.SevHigh, cfg.MinSeverity())
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, ToolsConfig{Checkov: true, Trivy: true, NpmAudit: true}, cfg.Tools)
}

func TestDotEnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DSCAN_FAIL_ON=none\n"), 0o644))
	t.Setenv("DSCAN_FAIL_ON", "") // t.Setenv восстановит значение после теста
	require.NoError(t, os.Unsetenv("DSCAN_FAIL_ON"))

	cfg, err := Load("")
	require.NoError(t, err)
	_, enabled, err := cfg.FailOn()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestApplyEnvErrors(t *testing.T) {
	env := map[string]string{
		"DSCAN_SANDBOX_TIMEOUT": "soon",
		"DSCAN_SANDBOX_CPUS":    "many",
		"DSCAN_LOG_JSON":        "maybe",
		"DSCAN_TOOLS":           "nmap",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	err := Default().applyEnv(lookup)
	require.Error(t, err)
	for _, key := range []string{"DSCAN_SANDBOX_TIMEOUT", "DSCAN_SANDBOX_CPUS", "DSCAN_LOG_JSON", "nmap"} {
		assert.ErrorContains(t, err, key)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Severity.Min = "urgent"
	cfg.Severity.FailOn = "sometimes"
	cfg.Scan.Categories = []string{"sqli"}
	cfg.Scan.Languages = []string{"cobol"}
	cfg.Sandbox.CPUs = 0
	cfg.Sandbox.MemoryMB = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"severity.min", "severity.fail_on", "sqli", "cobol", "sandbox.cpus", "sandbox.memory_mb", "logging.level"} {
		assert.ErrorContains(t, err, part)
	}
}

func TestExcluder(t *testing.T) {
	ex, err := NewExcluder([]string{".git", "node_modules", "*.min.js", "dist/**", "/build/*.js"})
	require.NoError(t, err)

	tests := map[string]bool{
		"node_modules/lodash/index.js":    true,
		"web/node_modules/react/index.js": true,
		".git/config":                     true,
		"static/app.min.js":               true,
		"dist/bundle.js":                  true,
		"dist/deep/chunk.js":              true,
		"build/out.js":                    true,
		"build/nested/out.js":             false,
		"src/dist/file.js":                false,
		"src/app.js":                      false,
		"./src/handler.go":                false,
	}
	for path, want := range tests {
		assert.Equal(t, want, ex.Match(path), path)
	}

	var none *Excluder
	assert.False(t, none.Match("anything"))
}

func TestExcluderBadPattern(t *testing.T) {
	_, err := NewExcluder([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestCreateTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devos", "d-scan.env")

	created, err := CreateTemplate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	created, err = CreateTemplate(path)
	require.NoError(t, err)
	assert.False(t, created)
}
