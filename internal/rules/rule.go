// Package rules holds the static detection tables. Tables are built once and
// never change at runtime.
package rules

import (
	"regexp"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

// Taxonomy связывает правило с OWASP Top 10 и CWE.
type Taxonomy struct {
	OWASP string
	CWE   string
}

const (
	owaspAccess    = "A01:2021 - Broken Access Control"
	owaspCrypto    = "A02:2021 - Cryptographic Failures"
	owaspInjection = "A03:2021 - Injection"
	owaspMisconfig = "A05:2021 - Security Misconfiguration"
	owaspAuth      = "A07:2021 - Identification and Authentication Failures"
)

// Rule is a lexical rule: a regex applied to the whole text.
type Rule struct {
	ID        string
	Name      string
	Category  core.Category
	Languages []source.Language // пусто = все языки
	Pattern   *regexp.Regexp

	// ExcludeLine drops a match whose line matches. ExcludeMatch drops a match
	// whose own text matches. Both stand in for negative lookahead.
	ExcludeLine  *regexp.Regexp
	ExcludeMatch *regexp.Regexp

	Severity core.Severity
	Message  string
	Fix      string
	Taxonomy Taxonomy

	// MaxMatch bounds the reported text in runes, 0 means unbounded.
	MaxMatch int
	// MatchLine reports the trimmed source line instead of the matched text.
	MatchLine bool

	Metadata map[string]string
}

// AppliesTo reports whether the rule runs for lang.
func (r Rule) AppliesTo(lang source.Language) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// AbsenceRule fires once per document when Present matches nowhere in it.
type AbsenceRule struct {
	Rule
	Present *regexp.Regexp
}

// StructuralRule checks a value found at Path inside a parsed manifest.
// Predicate receives ok=false when the value is absent.
type StructuralRule struct {
	ID        string
	Name      string
	Path      string
	Predicate func(v any, ok bool) bool
	Severity  core.Severity
	Message   string
	Fix       string
	Taxonomy  Taxonomy
	PSS       string // baseline | restricted | ""
}

var (
	jsFamily = []source.Language{source.LangJavaScript, source.LangTypeScript}
	pyOnly   = []source.Language{source.LangPython}
	javaOnly = []source.Language{source.LangJava}
)
