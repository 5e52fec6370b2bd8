// Package manifest evaluates structural rules over parsed Kubernetes documents.
package manifest

import (
	"fmt"
	"strings"
)

// Value is one resolved branch of a path.
type Value struct {
	Path    string // конкретный путь, например spec.containers[1].image
	Value   any
	Present bool
}

// Extract resolves a dotted path such as "spec.containers[*].image" against doc.
// A "[*]" segment fans out over every list element. A missing key produces a
// single branch with Present=false, unless a "[*]" follows it; a "[*]" over
// something that is missing or not a list produces nothing.
func Extract(doc any, path string) []Value {
	var out []Value
	walk(doc, strings.Split(path, "."), nil, &out)
	return out
}

func walk(cur any, parts, trail []string, out *[]Value) {
	if len(parts) == 0 {
		*out = append(*out, Value{Path: strings.Join(trail, "."), Value: cur, Present: true})
		return
	}

	part := parts[0]
	m, isMap := asMap(cur)

	if key, ok := strings.CutSuffix(part, "[*]"); ok {
		if !isMap {
			return
		}
		list, isList := m[key].([]any)
		if !isList {
			return
		}
		for i, item := range list {
			walk(item, parts[1:], extend(trail, fmt.Sprintf("%s[%d]", key, i)), out)
		}
		return
	}

	next, found := m[part]
	if !isMap || !found {
		// отсутствующий список не порождает элементов
		if fansOut(parts[1:]) {
			return
		}
		*out = append(*out, Value{Path: strings.Join(extend(trail, parts...), ".")})
		return
	}
	walk(next, parts[1:], extend(trail, part), out)
}

func fansOut(parts []string) bool {
	for _, p := range parts {
		if strings.HasSuffix(p, "[*]") {
			return true
		}
	}
	return false
}

// extend всегда копирует: ветки не должны делить один backing array.
func extend(trail []string, more ...string) []string {
	out := make([]string, 0, len(trail)+len(more))
	out = append(out, trail...)
	return append(out, more...)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		conv := make(map[string]any, len(m))
		for k, val := range m {
			conv[fmt.Sprint(k)] = val
		}
		return conv, true
	}
	return nil, false
}
