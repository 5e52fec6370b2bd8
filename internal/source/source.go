// Package source знает про текст: номера строк, комментарии и поиск совпадений.
package source

import (
	"regexp"
	"strings"
)

// Match это одно совпадение регулярки в исходном тексте.
type Match struct {
	Offset int
	Text   string
}

// LineNumber returns the 1-based line containing offset: one plus the number
// of '\n' strictly before it. Offset is clamped to [0, len(text)].
func LineNumber(text string, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

// LineAt returns the n-th line (1-indexed) or "" when n is out of range.
func LineAt(text string, n int) string {
	if n < 1 {
		return ""
	}
	for i := 1; ; i++ {
		idx := strings.IndexByte(text, '\n')
		if i == n {
			if idx < 0 {
				return strings.TrimSuffix(text, "\r")
			}
			return strings.TrimSuffix(text[:idx], "\r")
		}
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
}

// FindAll возвращает все непересекающиеся совпадения по порядку смещений.
func FindAll(text string, re *regexp.Regexp) []Match {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Match{Offset: loc[0], Text: text[loc[0]:loc[1]]})
	}
	return out
}

var commentPrefixes = map[Language][]string{
	LangPython:     {"#"},
	LangShell:      {"#"},
	LangYAML:       {"#"},
	LangDockerfile: {"#"},
	LangTerraform:  {"#", "//"},
	LangJavaScript: {"//", "/*", "*"},
	LangTypeScript: {"//", "/*", "*"},
	LangJava:       {"//", "/*", "*"},
	LangGo:         {"//", "/*", "*"},
}

var (
	unknownPrefixes = []string{"//", "#"}
	anyPrefixes     = []string{"//", "#", "*", "/*"}
)

// IsComment reports whether the trimmed line starts with a comment marker of lang.
func IsComment(line string, lang Language) bool {
	prefixes, ok := commentPrefixes[lang]
	if !ok {
		prefixes = unknownPrefixes
	}
	return hasAnyPrefix(line, prefixes)
}

// IsAnyComment использует объединенную таблицу маркеров, без учета языка.
// Нужна для секретов: они ищутся во всех файлах подряд.
func IsAnyComment(line string) bool {
	return hasAnyPrefix(line, anyPrefixes)
}

func hasAnyPrefix(line string, prefixes []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
