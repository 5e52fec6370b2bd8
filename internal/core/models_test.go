package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Finding {
	return []Finding{
		{Rule: "a", Severity: SevLow},
		{Rule: "b", Severity: SevMedium},
		{Rule: "c", Severity: SevHigh},
		{Rule: "d", Severity: SevCritical},
		{Rule: "e", Severity: SevHigh},
	}
}

func TestFilterAtOrAbove(t *testing.T) {
	got := FilterAtOrAbove(sample(), SevHigh)
	require.Len(t, got, 3)
	for _, f := range got {
		assert.GreaterOrEqual(t, f.Severity.Rank(), SevHigh.Rank())
	}
	assert.Len(t, FilterAtOrAbove(sample(), SevLow), 5)
	assert.Empty(t, FilterAtOrAbove(nil, SevLow))
}

func TestFilterMonotonic(t *testing.T) {
	levels := []Severity{SevLow, SevMedium, SevHigh, SevCritical}
	all := sample()
	for i := 1; i < len(levels); i++ {
		upper := FilterAtOrAbove(all, levels[i])
		lower := FilterAtOrAbove(all, levels[i-1])
		rules := map[string]bool{}
		for _, f := range lower {
			rules[f.Rule] = true
		}
		for _, f := range upper {
			assert.True(t, rules[f.Rule], "%s at %s missing from %s", f.Rule, levels[i], levels[i-1])
		}
	}
}

func TestSeverityOrderIsNotLexicographic(t *testing.T) {
	// "critical" < "high" as strings; the rank must say otherwise.
	assert.Greater(t, SevCritical.Rank(), SevHigh.Rank())
	assert.Greater(t, SevMedium.Rank(), SevLow.Rank())
	assert.True(t, AnyAtOrAbove([]Finding{{Severity: SevCritical}}, SevHigh))
	assert.False(t, AnyAtOrAbove([]Finding{{Severity: SevMedium}}, SevHigh))
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, SevHigh, s)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestFindingJSONShape(t *testing.T) {
	f := Finding{
		Category: CatSecrets,
		Rule:     "GitHub Token",
		Severity: SevCritical,
		Message:  "m",
		Fix:      "f",
		Line:     3,
		Match:    "ghp_****abcd",
		CWE:      "CWE-798",
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "critical", raw["severity"])
	assert.Equal(t, "CWE-798", raw["cweId"])
	assert.NotContains(t, raw, "metadata")

	var back Finding
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, SevCritical, back.Severity)
}

func TestWithMetadataCopies(t *testing.T) {
	orig := Finding{Severity: SevHigh, CWE: "CWE-89", Metadata: map[string]any{"tool": "native"}}
	enriched := orig.WithMetadata("reference", "OWASP A03")

	assert.Equal(t, "OWASP A03", enriched.Metadata["reference"])
	assert.NotContains(t, orig.Metadata, "reference")
	assert.Equal(t, orig.Severity, enriched.Severity)
	assert.Equal(t, orig.CWE, enriched.CWE)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	assert.Equal(t, Summary{Critical: 1, High: 2, Medium: 1, Low: 1}, s)
	assert.Equal(t, 5, s.Total())
}
