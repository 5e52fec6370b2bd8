package sandbox

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/code"
	"github.com/devos-os/d-scan/internal/source"
)

const defaultCodeFile = scanMount + "/" + codeFileName

// Entrypoint is the in-container side of ScanInSandbox. It reads the code
// file named by SCAN_CODE_FILE, scans it in every lexical category and
// prints a Report to stdout. Errors go to stderr as JSON and return 1.
func Entrypoint(getenv func(string) string, stdout, stderr io.Writer) int {
	report, err := entry(getenv)
	if err != nil {
		_ = json.NewEncoder(stderr).Encode(map[string]any{"success": false, "error": err.Error()})
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(stderr, "{\"success\":false,\"error\":%q}\n", err.Error())
		return 1
	}
	return 0
}

func entry(getenv func(string) string) (Report, error) {
	path := getenv("SCAN_CODE_FILE")
	if path == "" {
		path = defaultCodeFile
	}
	lang := source.LangAuto
	if v := getenv("SCAN_LANGUAGE"); v != "" {
		parsed, err := source.ParseLanguage(v)
		if err != nil {
			return Report{}, err
		}
		lang = parsed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("code file not found: %s", path)
	}
	if !utf8.Valid(data) {
		return Report{}, fmt.Errorf("code file is not valid UTF-8: %s", path)
	}
	text := string(data)
	if lang == source.LangAuto {
		lang = source.Detect("", text)
	}

	issues := code.ScanAll(text, lang)
	if issues == nil {
		issues = []core.Finding{}
	}
	return Report{
		Success:     true,
		Language:    string(lang),
		IssuesCount: len(issues),
		Issues:      issues,
		Summary:     core.Summarize(issues),
	}, nil
}
