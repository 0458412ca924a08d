package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// MockScorer implements a mock semantic scorer for testing
type MockScorer struct {
	logger *logrus.Logger

	// Score is returned from every analysis
	Score float64

	// Fail forces every call to return an error
	Fail error

	// Calls records every (original, transcribed) pair analyzed
	Calls []MockScoreCall
}

// MockScoreCall records one analysis request
type MockScoreCall struct {
	Original    string
	Transcribed string
}

// NewMockScorer creates a new mock scorer
func NewMockScorer(logger *logrus.Logger) *MockScorer {
	return &MockScorer{
		logger: logger,
		Score:  95,
	}
}

// Name returns the scorer name
func (s *MockScorer) Name() string {
	return "mock"
}

// Initialize initializes the mock scorer
func (s *MockScorer) Initialize() error {
	s.logger.Info("Mock scorer initialized")
	return nil
}

// Analyze returns a fixed analysis after normalizing both inputs
func (s *MockScorer) Analyze(ctx context.Context, original, transcribed string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Fail != nil {
		return nil, s.Fail
	}
	if strings.TrimSpace(original) == "" {
		return nil, ErrEmptyOriginal
	}
	if strings.TrimSpace(transcribed) == "" {
		return nil, ErrEmptyTranscript
	}

	s.Calls = append(s.Calls, MockScoreCall{
		Original:    NormalizeText(original),
		Transcribed: NormalizeText(transcribed),
	})

	return &Analysis{
		AccuracyScore:  ClampScore(s.Score),
		Summary:        "mock analysis",
		KeyDifferences: []string{},
		Suggestions:    []string{},
		Reasoning:      "fixed mock score",
	}, nil
}

// Ping always succeeds unless the scorer is forced to fail
func (s *MockScorer) Ping(ctx context.Context) error {
	if s.Fail != nil {
		return s.Fail
	}
	return nil
}
