package stt

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
)

// OpenAITranscriber implements the Transcriber interface using the
// OpenAI audio transcription endpoint.
type OpenAITranscriber struct {
	logger *logrus.Logger
	apiKey string
	config *config.STTConfig
	client *openai.Client
}

// NewOpenAITranscriber creates a new OpenAI transcriber
func NewOpenAITranscriber(logger *logrus.Logger, apiKey string, cfg *config.STTConfig) *OpenAITranscriber {
	return &OpenAITranscriber{
		logger: logger,
		apiKey: apiKey,
		config: cfg,
	}
}

// Name returns the backend name
func (t *OpenAITranscriber) Name() string {
	return "openai"
}

// Initialize initializes the OpenAI client
func (t *OpenAITranscriber) Initialize() error {
	if t.apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set in the environment")
	}
	t.client = openai.NewClient(t.apiKey)
	t.logger.WithField("model", t.config.Model).Info("OpenAI transcriber initialized")
	return nil
}

// TranscribeFile submits an audio file for transcription
func (t *OpenAITranscriber) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	size, err := ValidateAudioFile(path)
	if err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"path":    path,
		"size_kb": float64(size) / 1024,
		"model":   t.config.Model,
	}).Info("Starting transcription")

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       t.config.Model,
		FilePath:    path,
		Language:    t.config.Language,
		Prompt:      t.config.Prompt,
		Format:      openai.AudioResponseFormatJSON,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)

	t.logger.WithFields(logrus.Fields{
		"path":           path,
		"transcript_len": len(transcript),
	}).Info("Transcription completed")

	// The transcription endpoint reports no confidence; treat a
	// non-empty transcript as fully confident, matching the backend.
	confidence := 1.0
	if transcript == "" {
		confidence = 0
	}

	return &Result{Text: transcript, Confidence: confidence}, nil
}

// Ping lists models to verify connectivity and model availability
func (t *OpenAITranscriber) Ping(ctx context.Context) error {
	if t.client == nil {
		return ErrInitializationFailed
	}

	models, err := t.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI model listing failed: %w", err)
	}

	for _, m := range models.Models {
		if m.ID == t.config.Model {
			return nil
		}
	}
	return fmt.Errorf("model %s not available", t.config.Model)
}
