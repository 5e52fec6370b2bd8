package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity это порядковый уровень. Сравниваем только через Rank, не строками.
type Severity int

const (
	SevLow Severity = iota + 1
	SevMedium
	SevHigh
	SevCritical
)

var severityNames = map[Severity]string{
	SevLow:      "low",
	SevMedium:   "medium",
	SevHigh:     "high",
	SevCritical: "critical",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Rank returns the ordinal position of s (low=1 .. critical=4).
func (s Severity) Rank() int { return int(s) }

func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// ParseSeverity accepts the level names case-insensitively.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return SevLow, nil
	case "medium":
		return SevMedium, nil
	case "high":
		return SevHigh, nil
	case "critical":
		return SevCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want critical, high, medium or low)", v)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Category группирует правила по типу проблемы
type Category string

const (
	CatSecrets      Category = "secrets"
	CatInjection    Category = "injection"
	CatXSS          Category = "xss"
	CatCrypto       Category = "crypto"
	CatAuth         Category = "auth"
	CatPath         Category = "path"
	CatDockerfile   Category = "dockerfile"
	CatTerraform    Category = "terraform"
	CatKubernetes   Category = "kubernetes"
	CatDependencies Category = "dependencies"
	CatExternal     Category = "external"
)

// Finding представляет одну найденную проблему.
// JSON-форма используется репортерами и экспортом.
type Finding struct {
	Category Category       `json:"category"`
	Rule     string         `json:"rule"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Fix      string         `json:"fix"`
	File     string         `json:"file,omitempty"`
	Line     int            `json:"line,omitempty"`
	Match    string         `json:"match,omitempty"`
	OWASP    string         `json:"owaspCategory,omitempty"`
	CWE      string         `json:"cweId,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (f Finding) String() string {
	loc := f.File
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return fmt.Sprintf("[%s][%s] %s (%s)", f.Category, f.Severity, f.Rule, loc)
}

// WithMetadata returns a copy of f with key set in its metadata. The
// receiver's map is not touched.
func (f Finding) WithMetadata(key string, value any) Finding {
	md := make(map[string]any, len(f.Metadata)+1)
	for k, v := range f.Metadata {
		md[k] = v
	}
	md[key] = value
	f.Metadata = md
	return f
}

// FilterAtOrAbove keeps findings whose severity rank is >= level's rank.
func FilterAtOrAbove(findings []Finding, level Severity) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() >= level.Rank() {
			out = append(out, f)
		}
	}
	return out
}

// AnyAtOrAbove reports whether at least one finding meets level.
func AnyAtOrAbove(findings []Finding, level Severity) bool {
	for _, f := range findings {
		if f.Severity.Rank() >= level.Rank() {
			return true
		}
	}
	return false
}

// Summary: счетчики по уровням
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SevCritical:
			s.Critical++
		case SevHigh:
			s.High++
		case SevMedium:
			s.Medium++
		case SevLow:
			s.Low++
		}
	}
	return s
}

func (s Summary) Total() int { return s.Critical + s.High + s.Medium + s.Low }
