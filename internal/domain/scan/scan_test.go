package scan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptReference_Identifier(t *testing.T) {
	inline := NewInlineScript(3, "console.log(1)")
	assert.Equal(t, "Script #3", inline.Identifier())
	assert.True(t, inline.Fetched)

	external := NewExternalScript(4, "https://cdn.example.com/app.js")
	assert.Equal(t, "https://cdn.example.com/app.js", external.Identifier())
	assert.False(t, external.Fetched)

	fetched := external.WithBody("approve")
	assert.True(t, fetched.Fetched)
	assert.Equal(t, "approve", fetched.Body)
	assert.False(t, external.Fetched, "WithBody must not mutate the original")
}

func TestPatternMatch_Reason(t *testing.T) {
	testCases := []struct {
		name     string
		ref      ScriptReference
		pattern  string
		expected string
	}{
		{
			name:     "inline",
			ref:      NewInlineScript(1, ""),
			pattern:  "window.ethereum",
			expected: "Inline Script #1: Suspicious pattern 'window.ethereum' detected",
		},
		{
			name:     "external",
			ref:      NewExternalScript(2, "https://evil.example/drain.js"),
			pattern:  "approve",
			expected: "External Script 'https://evil.example/drain.js': Suspicious pattern 'approve' detected",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NewPatternMatch(tc.ref, tc.pattern).Reason())
		})
	}
}

func TestFetchFailureReason(t *testing.T) {
	ref := NewExternalScript(1, "https://example.com/missing.js")
	assert.Equal(t, "Could not fetch external script: https://example.com/missing.js", FetchFailureReason(ref))
}

func TestResult_RecordScriptsAndRows(t *testing.T) {
	result := NewResult("https://example.com")
	result.RecordScripts([]ScriptReference{
		NewInlineScript(1, "a"),
		NewExternalScript(2, "https://example.com/a.js").WithBody("b"),
		NewExternalScript(3, "https://example.com/b.js"),
	})

	assert.Equal(t, 1, result.InlineScripts)
	assert.Equal(t, 2, result.ExternalScripts)
	assert.Equal(t, 1, result.FetchedScripts)
	assert.Equal(t, 1, result.FailedScripts)

	match := NewPatternMatch(NewInlineScript(1, ""), "sign")
	result.AddMatches([]PatternMatch{match}, []string{match.Reason()})

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, [3]string{"Inline", "Script #1", "sign"}, rows[0])
	assert.Equal(t, []string{"Inline Script #1: Suspicious pattern 'sign' detected"}, result.Reasons)
}

func TestResult_JSONFlattensAssessment(t *testing.T) {
	result := NewResult("https://example.com")
	result.Assessment = Assessment{Score: 5, Tier: TierSuspicious, Label: "Medium Risk", Percentage: 25}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "SUSPICIOUS", decoded["tier"])
	assert.EqualValues(t, 25, decoded["percentage"])
	assert.Equal(t, []interface{}{}, decoded["matches"])
}
