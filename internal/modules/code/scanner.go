package code

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/secrets"
	"github.com/devos-os/d-scan/internal/rules"
	"github.com/devos-os/d-scan/internal/source"
)

// ErrUnreadable помечает файл, который нельзя прочитать или декодировать.
var ErrUnreadable = errors.New("input unreadable")

// InputError is a soft failure for one file: callers log it and move on.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("skip %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() []error { return []error{ErrUnreadable, e.Err} }

// Маркеры примеров и заглушек: строку с ними не репортим.
var placeholderMarkers = []string{
	"example", "sample", "dummy", "test", "xxx",
	"your_", "your-", "<your", "placeholder", "changeme",
}

// Маркеры санитайзинга, только для XSS.
var sanitizerMarkers = []string{
	"sanitize", "escape", "encode", "dompurify", "xss",
	"htmlspecialchars", "htmlentities",
}

var (
	placeholders = ahocorasick.NewTrieBuilder().AddStrings(placeholderMarkers).Build()
	sanitizers   = ahocorasick.NewTrieBuilder().AddStrings(sanitizerMarkers).Build()
)

func containsAny(trie *ahocorasick.Trie, line string) bool {
	return len(trie.Match([]byte(strings.ToLower(line)))) > 0
}

// Options tunes suppression for Apply.
type Options struct {
	SkipPlaceholders bool // строки с example/test/... выкидываем
	SkipSanitized    bool
	AnyComment       bool // объединенная таблица комментариев вместо языковой
	Mask             bool // маскировать совпадение (секреты)
}

func optionsFor(category core.Category) Options {
	o := Options{SkipPlaceholders: true}
	switch category {
	case core.CatSecrets:
		o.AnyComment = true
		o.Mask = true
	case core.CatXSS:
		o.SkipSanitized = true
	}
	return o
}

// ScanText runs every rule of category that applies to lang over text.
// Findings come out in rule order, then match offset order.
func ScanText(text string, category core.Category, lang source.Language) []core.Finding {
	if lang == source.LangAuto || lang == "" {
		lang = source.Detect("", text)
	}
	return Apply(text, rules.Default().For(category, lang), lang, optionsFor(category))
}

// ScanAll runs all code categories and concatenates the results in category order.
func ScanAll(text string, lang source.Language) []core.Finding {
	if lang == source.LangAuto || lang == "" {
		lang = source.Detect("", text)
	}
	var findings []core.Finding
	for _, cat := range rules.Categories() {
		findings = append(findings, ScanText(text, cat, lang)...)
	}
	return findings
}

// ScanFile reads path and runs ScanAll. Unreadable or non-UTF-8 files return
// nil findings and an *InputError.
func ScanFile(path string, lang source.Language) ([]core.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &InputError{Path: path, Err: errors.New("not valid UTF-8")}
	}
	text := string(data)
	if lang == source.LangAuto || lang == "" {
		lang = source.Detect(path, text)
	}

	findings := ScanAll(text, lang)
	for i := range findings {
		findings[i].File = path
	}
	return findings, nil
}

// Apply evaluates rs over text. Matches on comment lines, or lines excluded
// by opts or by the rule itself, are dropped silently.
func Apply(text string, rs []rules.Rule, lang source.Language, opts Options) []core.Finding {
	var findings []core.Finding

	for _, rule := range rs {
		for _, m := range source.FindAll(text, rule.Pattern) {
			lineNum := source.LineNumber(text, m.Offset)
			line := source.LineAt(text, lineNum)

			if opts.AnyComment {
				if source.IsAnyComment(line) {
					continue
				}
			} else if source.IsComment(line, lang) {
				continue
			}
			if opts.SkipPlaceholders && containsAny(placeholders, line) {
				continue
			}
			if opts.SkipSanitized && containsAny(sanitizers, line) {
				continue
			}
			if rule.ExcludeLine != nil && rule.ExcludeLine.MatchString(line) {
				continue
			}
			if rule.ExcludeMatch != nil && rule.ExcludeMatch.MatchString(m.Text) {
				continue
			}

			matched := m.Text
			if rule.MatchLine {
				matched = strings.TrimSpace(line)
			}
			if opts.Mask {
				// сырое значение дальше этой точки не уходит
				matched = secrets.Mask(matched)
			}
			matched = truncate(matched, rule.MaxMatch)

			findings = append(findings, NewFinding(rule, lineNum, matched))
		}
	}
	return findings
}

// NewFinding builds a finding carrying rule's severity, taxonomy and metadata.
func NewFinding(rule rules.Rule, line int, match string) core.Finding {
	f := core.Finding{
		Category: rule.Category,
		Rule:     rule.Name,
		Severity: rule.Severity,
		Message:  rule.Message,
		Fix:      rule.Fix,
		Line:     line,
		Match:    match,
		OWASP:    rule.Taxonomy.OWASP,
		CWE:      rule.Taxonomy.CWE,
	}
	if rule.ID != "" || len(rule.Metadata) > 0 {
		f.Metadata = map[string]any{"ruleId": rule.ID}
		for k, v := range rule.Metadata {
			f.Metadata[k] = v
		}
	}
	return f
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
