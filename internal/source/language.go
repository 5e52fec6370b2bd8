package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Language string

const (
	LangAuto       Language = "auto"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangGo         Language = "go"
	LangShell      Language = "shell"
	LangYAML       Language = "yaml"
	LangDockerfile Language = "dockerfile"
	LangTerraform  Language = "terraform"
	LangUnknown    Language = "unknown"
)

var known = []Language{
	LangJavaScript, LangTypeScript, LangPython, LangJava, LangGo,
	LangShell, LangYAML, LangDockerfile, LangTerraform,
}

// ParseLanguage принимает имя языка или "auto". Пустая строка = auto.
func ParseLanguage(v string) (Language, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "", "auto":
		return LangAuto, nil
	case "js":
		return LangJavaScript, nil
	case "ts":
		return LangTypeScript, nil
	case "py":
		return LangPython, nil
	case "golang":
		return LangGo, nil
	case "sh", "bash":
		return LangShell, nil
	case "yml", "k8s", "kubernetes":
		return LangYAML, nil
	case "docker":
		return LangDockerfile, nil
	case "tf", "hcl":
		return LangTerraform, nil
	}
	for _, l := range known {
		if string(l) == v {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", v)
}

var extensions = map[string]Language{
	".js":         LangJavaScript,
	".jsx":        LangJavaScript,
	".mjs":        LangJavaScript,
	".cjs":        LangJavaScript,
	".vue":        LangJavaScript,
	".ts":         LangTypeScript,
	".tsx":        LangTypeScript,
	".py":         LangPython,
	".java":       LangJava,
	".jsp":        LangJava,
	".go":         LangGo,
	".sh":         LangShell,
	".bash":       LangShell,
	".yaml":       LangYAML,
	".yml":        LangYAML,
	".dockerfile": LangDockerfile,
	".tf":         LangTerraform,
	".tfvars":     LangTerraform,
}

// Detect определяет язык: сначала по расширению, потом по содержимому.
// По умолчанию javascript.
func Detect(path, text string) Language {
	if l, ok := ByExtension(path); ok {
		return l
	}
	return detectByContent(text)
}

// ByExtension resolves the language from the file name alone.
func ByExtension(path string) (Language, bool) {
	if path == "" {
		return "", false
	}
	base := filepath.Base(path)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return LangDockerfile, true
	}
	l, ok := extensions[strings.ToLower(filepath.Ext(base))]
	return l, ok
}

// Эвристика грубая, порядок проверок важен.
func detectByContent(code string) Language {
	switch {
	case strings.Contains(code, "import React") || strings.Contains(code, "useState"):
		return LangJavaScript
	case strings.Contains(code, ": string") || strings.Contains(code, ": number"):
		return LangTypeScript
	case strings.Contains(code, "def ") || strings.Contains(code, "import "):
		return LangPython
	case strings.Contains(code, "public class") || strings.Contains(code, "private void"):
		return LangJava
	case strings.Contains(code, "func ") || strings.Contains(code, "package main"):
		return LangGo
	}
	return LangJavaScript
}

// IsManifest reports whether lang is handled by the IaC rules rather than code rules.
func (l Language) IsManifest() bool {
	return l == LangDockerfile || l == LangTerraform || l == LangYAML
}
