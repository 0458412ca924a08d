package llm

import (
	"context"
	"errors"
)

// Error definitions
var (
	ErrEmptyOriginal    = errors.New("original script must not be empty")
	ErrEmptyTranscript  = errors.New("transcribed text must not be empty")
	ErrScoringBackend   = errors.New("scoring backend error")
	ErrNotInitialized   = errors.New("scorer not initialized")
)

// Analysis is the structured result of a semantic comparison.
type Analysis struct {
	AccuracyScore  float64  `json:"accuracy_score"`
	Summary        string   `json:"summary"`
	KeyDifferences []string `json:"key_differences"`
	Suggestions    []string `json:"suggestions"`
	Reasoning      string   `json:"reasoning"`

	// Degraded marks an analysis produced without a usable backend
	// response (malformed JSON, empty transcript). A degraded analysis
	// is a valid outcome, not a failure.
	Degraded bool `json:"degraded,omitempty"`
}

// EmptyAnalysis returns the degraded analysis recorded when there is no
// transcript to compare.
func EmptyAnalysis(reason string) *Analysis {
	return &Analysis{
		AccuracyScore:  0,
		Summary:        reason,
		KeyDifferences: []string{},
		Suggestions:    []string{},
		Degraded:       true,
	}
}

// Scorer compares an original script with a transcript and judges how
// faithfully the round trip preserved its meaning.
type Scorer interface {
	// Initialize initializes the scorer with any required configuration
	Initialize() error

	// Name returns the scorer name
	Name() string

	// Analyze scores the semantic fidelity of transcribed against original
	Analyze(ctx context.Context, original, transcribed string) (*Analysis, error)

	// Ping performs a trivial round-trip to verify the backend is reachable
	Ping(ctx context.Context) error
}

// ClampScore bounds a raw score to [0,100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
