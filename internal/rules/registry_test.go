package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestForFiltersByLanguage(t *testing.T) {
	reg := Default()

	py := reg.For(core.CatInjection, source.LangPython)
	ids := map[string]bool{}
	for _, r := range py {
		ids[r.ID] = true
		assert.True(t, r.AppliesTo(source.LangPython))
	}
	assert.True(t, ids["INJ003"], "python f-string rule")
	assert.False(t, ids["INJ001"], "js-only rule leaked into python")

	// секреты не зависят от языка
	assert.Equal(t, len(reg.For(core.CatSecrets, source.LangGo)), len(reg.For(core.CatSecrets, source.LangUnknown)))
}

func TestForReturnsCopy(t *testing.T) {
	reg := Default()
	first := reg.For(core.CatCrypto, source.LangJavaScript)
	require.NotEmpty(t, first)
	first[0].ID = "mutated"

	again := reg.For(core.CatCrypto, source.LangJavaScript)
	assert.NotEqual(t, "mutated", again[0].ID)
}

func TestTablesAreWellFormed(t *testing.T) {
	reg := Default()
	for _, cat := range append(Categories(), core.CatDockerfile, core.CatTerraform) {
		seen := map[string]bool{}
		for _, r := range reg.lexical[cat] {
			assert.NotEmpty(t, r.ID)
			assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
			seen[r.ID] = true
			assert.NotNil(t, r.Pattern, r.ID)
			assert.True(t, r.Severity.Valid(), r.ID)
			assert.Equal(t, cat, r.Category, r.ID)
			assert.NotEmpty(t, r.Taxonomy.CWE, r.ID)
		}
	}
	for _, r := range reg.Structural(core.CatKubernetes) {
		assert.NotNil(t, r.Predicate, r.ID)
	}
}

func TestTruncationBounds(t *testing.T) {
	reg := Default()
	bounds := map[core.Category]int{
		core.CatSecrets:   0,
		core.CatInjection: 100,
		core.CatXSS:       0,
		core.CatCrypto:    0,
		core.CatAuth:      80,
		core.CatPath:      60,
		core.CatTerraform: 80,
	}
	for cat, want := range bounds {
		for _, r := range reg.lexical[cat] {
			assert.Equal(t, want, r.MaxMatch, "%s/%s", cat, r.ID)
		}
	}
}

func TestNonRootUserPresence(t *testing.T) {
	var df003 AbsenceRule
	for _, r := range Default().Absence(core.CatDockerfile) {
		if r.ID == "DF003" {
			df003 = r
		}
	}
	require.NotNil(t, df003.Present)

	tests := []struct {
		text string
		want bool
	}{
		{"USER node", true},
		{"USER 1000:1000", true},
		{"USER rootless", true},
		{"USER r", true},
		{"USER root", false},
		{"USER root:root", false},
		{"FROM alpine\nRUN true", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, df003.Present.MatchString(tt.text), tt.text)
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("xss")
	assert.True(t, ok)
	assert.Equal(t, core.CatXSS, c)

	c, ok = ParseCategory("dependencies")
	assert.True(t, ok)
	assert.Equal(t, core.CatDependencies, c)

	_, ok = ParseCategory("nope")
	assert.False(t, ok)
}

func TestPredicates(t *testing.T) {
	assert.True(t, isTrue(true, true))
	assert.False(t, isTrue(nil, false))
	assert.True(t, notTrue(nil, false))
	assert.False(t, notTrue(true, true))

	assert.True(t, dangerousCaps([]any{"NET_BIND_SERVICE", "SYS_ADMIN"}, true))
	assert.False(t, dangerousCaps([]any{"NET_BIND_SERVICE"}, true))

	assert.True(t, missingLimits(nil, false))
	assert.True(t, missingLimits(map[string]any{}, true))
	assert.False(t, missingLimits(map[string]any{"memory": "128Mi"}, true))
}
