package stt

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MockTranscriber implements a mock speech-to-text backend for testing
type MockTranscriber struct {
	logger *logrus.Logger

	// Transcript is returned from every call
	Transcript string

	// Confidence is returned alongside the transcript
	Confidence float64

	// Fail forces every call to return an error
	Fail error

	// SkipValidation disables the file size bounds check
	SkipValidation bool

	// Calls records the paths submitted for transcription
	Calls []string
}

// NewMockTranscriber creates a new mock transcriber
func NewMockTranscriber(logger *logrus.Logger) *MockTranscriber {
	return &MockTranscriber{
		logger:     logger,
		Transcript: "你好 我想詢問帳單問題",
		Confidence: 0.95,
	}
}

// Name returns the backend name
func (t *MockTranscriber) Name() string {
	return "mock"
}

// Initialize initializes the mock transcriber
func (t *MockTranscriber) Initialize() error {
	t.logger.Info("Mock transcriber initialized")
	return nil
}

// TranscribeFile returns the configured transcript
func (t *MockTranscriber) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.Fail != nil {
		return nil, t.Fail
	}

	if !t.SkipValidation {
		if _, err := ValidateAudioFile(path); err != nil {
			return nil, err
		}
	}

	t.Calls = append(t.Calls, path)
	return &Result{Text: t.Transcript, Confidence: t.Confidence}, nil
}

// Ping always succeeds unless the transcriber is forced to fail
func (t *MockTranscriber) Ping(ctx context.Context) error {
	if t.Fail != nil {
		return t.Fail
	}
	return nil
}
