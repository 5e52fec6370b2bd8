// Package tools оборачивает внешние сканеры (gitleaks, checkov, trivy) и
// переводит их отчеты в core.Finding.
package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	// Версии, на которые рассчитан разбор отчетов
	gitleaksVer = "8.18.1"
	checkovVer  = "3.1.40"
	trivyVer    = "0.48.3"
)

var ErrToolMissing = errors.New("tool not installed")

var installHints = map[string]string{
	"gitleaks": fmt.Sprintf("curl -sSfL https://github.com/gitleaks/gitleaks/releases/download/v%s/gitleaks_%s_linux_x64.tar.gz | tar xz", gitleaksVer, gitleaksVer),
	"checkov":  fmt.Sprintf("pip install checkov==%s", checkovVer),
	"trivy":    fmt.Sprintf("curl -sfL https://raw.githubusercontent.com/aquasecurity/trivy/main/contrib/install.sh | sh -s -- v%s", trivyVer),
}

// CacheDir is where DevOS tools keep downloaded binaries.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "devos", "bin")
	}
	return filepath.Join(home, ".cache", "devos", "bin")
}

// EnsureTool ищет бинарник сначала в PATH, потом в кэше DevOS.
// Ничего не скачивает: возвращает ErrToolMissing с подсказкой по установке.
func EnsureTool(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	toolPath := filepath.Join(CacheDir(), name)
	if info, err := os.Stat(toolPath); err == nil && !info.IsDir() {
		return toolPath, nil
	}

	if hint, ok := installHints[name]; ok {
		return "", fmt.Errorf("%w: %s (install: %s)", ErrToolMissing, name, hint)
	}
	return "", fmt.Errorf("%w: %s", ErrToolMissing, name)
}
