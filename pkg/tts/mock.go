package tts

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/media"
)

// MockProvider implements a mock speech synthesis provider for testing.
// It produces silence whose length tracks the utterance length, so
// downstream duration and size checks see realistic values.
type MockProvider struct {
	logger     *logrus.Logger
	sampleRate int

	// Fail forces every synthesis call to return an error
	Fail error

	// Calls records every synthesized (text, voice) pair
	Calls []MockCall
}

// MockCall records one synthesis request
type MockCall struct {
	Text  string
	Voice string
}

// NewMockProvider creates a new mock provider
func NewMockProvider(logger *logrus.Logger, sampleRate int) *MockProvider {
	return &MockProvider{
		logger:     logger,
		sampleRate: sampleRate,
	}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// Initialize initializes the mock provider
func (p *MockProvider) Initialize() error {
	p.logger.Info("Mock TTS provider initialized")
	return nil
}

// Synthesize returns deterministic PCM sized by the utterance length
func (p *MockProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Fail != nil {
		return nil, p.Fail
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	p.Calls = append(p.Calls, MockCall{Text: text, Voice: voice})

	// Roughly 0.3 seconds of audio per character
	seconds := 0.3 * float64(utf8.RuneCountInString(text))
	return media.Silence(seconds, p.sampleRate), nil
}

// Ping always succeeds unless the provider is forced to fail
func (p *MockProvider) Ping(ctx context.Context) error {
	if p.Fail != nil {
		return p.Fail
	}
	return nil
}
