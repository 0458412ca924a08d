package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisWellFormed(t *testing.T) {
	response := `{
		"accuracy_score": 92,
		"summary": "語意一致",
		"key_differences": ["斷句不同"],
		"suggestions": ["調整語速"],
		"reasoning": "核心語意完整保留"
	}`

	analysis := ParseAnalysis(response)
	assert.Equal(t, 92.0, analysis.AccuracyScore)
	assert.Equal(t, "語意一致", analysis.Summary)
	assert.Equal(t, []string{"斷句不同"}, analysis.KeyDifferences)
	assert.Equal(t, []string{"調整語速"}, analysis.Suggestions)
	assert.False(t, analysis.Degraded)
}

func TestParseAnalysisClampsScore(t *testing.T) {
	assert.Equal(t, 100.0, ParseAnalysis(`{"accuracy_score": 150}`).AccuracyScore)
	assert.Equal(t, 0.0, ParseAnalysis(`{"accuracy_score": -20}`).AccuracyScore)
}

func TestParseAnalysisMalformedResponse(t *testing.T) {
	analysis := ParseAnalysis("the model refused to answer in JSON")

	assert.True(t, analysis.Degraded)
	assert.Equal(t, 0.0, analysis.AccuracyScore)
	assert.NotEmpty(t, analysis.Summary)
	assert.NotEmpty(t, analysis.Suggestions)
}

func TestParseAnalysisNonNumericScore(t *testing.T) {
	analysis := ParseAnalysis(`{"accuracy_score": 85, "summary": "ok"}`)
	assert.Equal(t, 85.0, analysis.AccuracyScore)
	assert.False(t, analysis.Degraded)

	// Missing score parses to zero without degrading
	analysis = ParseAnalysis(`{"summary": "ok"}`)
	assert.Equal(t, 0.0, analysis.AccuracyScore)
	assert.False(t, analysis.Degraded)
}

func TestParseAnalysisFillsDefaults(t *testing.T) {
	analysis := ParseAnalysis(`{"accuracy_score": 70}`)
	assert.Equal(t, "analysis completed", analysis.Summary)
	require.NotNil(t, analysis.KeyDifferences)
	require.NotNil(t, analysis.Suggestions)
	assert.Empty(t, analysis.KeyDifferences)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-5))
	assert.Equal(t, 55.5, ClampScore(55.5))
	assert.Equal(t, 100.0, ClampScore(101))
}

func TestEmptyAnalysis(t *testing.T) {
	analysis := EmptyAnalysis("no transcript to analyze")
	assert.True(t, analysis.Degraded)
	assert.Equal(t, 0.0, analysis.AccuracyScore)
	assert.Equal(t, "no transcript to analyze", analysis.Summary)
}

func TestBuildAnalysisPromptEmbedsInputs(t *testing.T) {
	prompt := buildAnalysisPrompt("原始內容", "轉錄內容")
	assert.Contains(t, prompt, "原始內容")
	assert.Contains(t, prompt, "轉錄內容")
	assert.Contains(t, prompt, "accuracy_score")
}
