package reporters

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/devos-os/d-scan/internal/core"
)

// Export is the JSON document written by --format json. Findings keep the
// core.Finding shape.
type Export struct {
	Tool        string         `json:"tool"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Root        string         `json:"root,omitempty"`
	Summary     core.Summary   `json:"summary"`
	Findings    []core.Finding `json:"findings"`
	Warnings    []string       `json:"warnings,omitempty"`
}

func NewExport(root string, findings []core.Finding, warnings []error) Export {
	if findings == nil {
		findings = []core.Finding{}
	}
	e := Export{
		Tool:        "d-scan",
		GeneratedAt: time.Now().UTC(),
		Root:        root,
		Summary:     core.Summarize(findings),
		Findings:    findings,
	}
	for _, w := range warnings {
		e.Warnings = append(e.Warnings, w.Error())
	}
	return e
}

func WriteJSON(w io.Writer, e Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteJSONFile пишет отчет в файл целиком.
func WriteJSONFile(path string, e Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
