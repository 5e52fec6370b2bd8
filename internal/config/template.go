package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const envTemplate = `# DevOS d-scan configuration
# Раскомментируйте нужные строки

# DSCAN_SEVERITY=low
# DSCAN_FAIL_ON=critical
# DSCAN_EXCLUDE=.git,node_modules,vendor
# DSCAN_TOOLS=gitleaks,checkov,trivy,npm

# --- Sandbox ---
# DSCAN_SANDBOX_IMAGE=devos/d-scan:latest
# DSCAN_SANDBOX_TIMEOUT=30s
# DSCAN_SANDBOX_MEMORY=512
# DSCAN_SANDBOX_CPUS=0.5

# DSCAN_LOG_LEVEL=info
`

// GlobalEnvPath is ~/.config/devos/d-scan.env.
func GlobalEnvPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "devos", envFileName), nil
}

// CreateTemplate пишет шаблон env-файла, если его еще нет.
// Возвращает true, если файл был создан.
func CreateTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(envTemplate), 0o644); err != nil {
		return false, fmt.Errorf("write template: %w", err)
	}
	return true, nil
}
