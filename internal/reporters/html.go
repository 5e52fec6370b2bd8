package reporters

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/devos-os/d-scan/internal/core"
)

const htmlTemplate = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>DevOS Security Report</title>
	<style>
		body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background: #f4f4f9; padding: 40px; }
		.container { max-width: 900px; margin: 0 auto; }
		.header { background: linear-gradient(135deg, #6c5ce7, #a29bfe); color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
		.summary span { margin-right: 16px; }
		.issue { background: white; margin: 15px 0; padding: 20px; border-left: 6px solid #ccc; border-radius: 4px; box-shadow: 0 2px 5px rgba(0,0,0,0.05); }
		.CRITICAL { border-left-color: #ff4757; }
		.HIGH { border-left-color: #ffa502; }
		.MEDIUM { border-left-color: #eccc68; }
		.LOW { border-left-color: #70a1ff; }
		h3 { margin-top: 0; }
		.meta { color: #666; font-size: 0.9em; font-family: monospace; background: #eee; padding: 2px 5px; border-radius: 3px; }
		.suggestion { background: #e3f2fd; padding: 10px; border-radius: 4px; margin-top: 10px; color: #0d47a1; }
	</style>
</head>
<body>
<div class="container">
	<div class="header">
		<h1>🛡️ d-scan Report</h1>
		<p><strong>Generated:</strong> {{ .Date }} | <strong>Issues Found:</strong> {{ .Count }}</p>
		<p class="summary">
			<span>Critical: {{ .Summary.Critical }}</span>
			<span>High: {{ .Summary.High }}</span>
			<span>Medium: {{ .Summary.Medium }}</span>
			<span>Low: {{ .Summary.Low }}</span>
		</p>
	</div>
	{{ range .Findings }}
	<div class="issue {{ upper .Severity.String }}">
		<h3>[{{ upper .Severity.String }}] {{ .Category }}: {{ .Rule }}</h3>
		{{ if .File }}<p>📍 Location: <span class="meta">{{ .File }}{{ if .Line }}:{{ .Line }}{{ end }}</span></p>{{ end }}
		<p>{{ .Message }}</p>
		{{ if .Match }}<p><span class="meta">{{ .Match }}</span></p>{{ end }}
		{{ if or .CWE .OWASP }}<p class="meta">{{ .CWE }} {{ .OWASP }}</p>{{ end }}
		{{ if .Fix }}
		<div class="suggestion"><strong>💡 Fix:</strong> {{ .Fix }}</div>
		{{ end }}
	</div>
	{{ end }}
</div>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).Parse(htmlTemplate))

func RenderHTML(w io.Writer, findings []core.Finding) error {
	data := struct {
		Date     string
		Count    int
		Summary  core.Summary
		Findings []core.Finding
	}{
		Date:     time.Now().Format(time.RFC822),
		Count:    len(findings),
		Summary:  core.Summarize(findings),
		Findings: findings,
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// GenerateHTML writes the report to filename.
func GenerateHTML(findings []core.Finding, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	if err := RenderHTML(f, findings); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
