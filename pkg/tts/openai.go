package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/media"
)

// OpenAIProvider implements the Provider interface using the OpenAI
// speech endpoint.
type OpenAIProvider struct {
	logger     *logrus.Logger
	apiKey     string
	sampleRate int
	client     *openai.Client
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(logger *logrus.Logger, apiKey string, sampleRate int) *OpenAIProvider {
	return &OpenAIProvider{
		logger:     logger,
		apiKey:     apiKey,
		sampleRate: sampleRate,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Initialize initializes the OpenAI client
func (p *OpenAIProvider) Initialize() error {
	if p.apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set in the environment")
	}
	p.client = openai.NewClient(p.apiKey)
	p.logger.Info("OpenAI TTS provider initialized")
	return nil
}

// Synthesize converts one utterance to PCM audio
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI speech response: %w", err)
	}

	pcm, _, err := media.ExtractPCM(audio, p.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("unexpected OpenAI audio payload: %w", err)
	}
	return pcm, nil
}

// Ping performs a minimal synthesis round-trip
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.Synthesize(ctx, "test", string(openai.VoiceAlloy))
	return err
}
