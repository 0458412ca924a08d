package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/media"
)

// YatingProvider implements the Provider interface for the Yating TTS API
type YatingProvider struct {
	logger     *logrus.Logger
	config     *config.YatingConfig
	sampleRate int
	client     *http.Client
}

type yatingRequest struct {
	Input       yatingInput       `json:"input"`
	Voice       yatingVoice       `json:"voice"`
	AudioConfig yatingAudioConfig `json:"audioConfig"`
}

type yatingInput struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type yatingVoice struct {
	Model  string  `json:"model"`
	Speed  float64 `json:"speed"`
	Pitch  float64 `json:"pitch"`
	Energy float64 `json:"energy"`
}

type yatingAudioConfig struct {
	Encoding   string `json:"encoding"`
	SampleRate string `json:"sampleRate"`
}

type yatingResponse struct {
	AudioContent string `json:"audioContent"`
}

// NewYatingProvider creates a new Yating TTS provider
func NewYatingProvider(logger *logrus.Logger, cfg *config.YatingConfig, sampleRate int, timeout time.Duration) *YatingProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &YatingProvider{
		logger:     logger,
		config:     cfg,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name
func (p *YatingProvider) Name() string {
	return "yating"
}

// Initialize validates the Yating configuration
func (p *YatingProvider) Initialize() error {
	if p.config == nil || p.config.APIKey == "" {
		return fmt.Errorf("YATING_API_KEY is not set")
	}
	if p.config.Endpoint == "" {
		return fmt.Errorf("Yating TTS endpoint is not set")
	}
	p.logger.Info("Yating TTS provider initialized")
	return nil
}

// Synthesize converts one utterance to PCM via the Yating short-speech API
func (p *YatingProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	reqBody := yatingRequest{
		Input: yatingInput{Text: text, Type: "text"},
		Voice: yatingVoice{
			Model:  voice,
			Speed:  p.config.Speed,
			Pitch:  p.config.Pitch,
			Energy: p.config.Energy,
		},
		AudioConfig: yatingAudioConfig{
			Encoding:   p.config.Encoding,
			SampleRate: sampleRateLabel(p.sampleRate),
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Yating request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create Yating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("key", p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Yating TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"detail": string(detail),
		}).Error("Yating TTS API request failed")
		return nil, fmt.Errorf("Yating TTS API returned status %d: %s", resp.StatusCode, string(detail))
	}

	var result yatingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Yating response: %w", err)
	}
	if result.AudioContent == "" {
		return nil, fmt.Errorf("Yating TTS response contains no audio content")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Yating audio content: %w", err)
	}

	pcm, _, err := media.ExtractPCM(audio, p.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("unexpected Yating audio payload: %w", err)
	}
	return pcm, nil
}

// Ping performs a minimal synthesis round-trip
func (p *YatingProvider) Ping(ctx context.Context) error {
	_, err := p.Synthesize(ctx, "測試", "zh_en_female_1")
	return err
}

// sampleRateLabel converts a numeric rate to the label the Yating API
// expects, e.g. 16000 -> "16K".
func sampleRateLabel(rate int) string {
	if rate >= 1000 && rate%1000 == 0 {
		return fmt.Sprintf("%dK", rate/1000)
	}
	return fmt.Sprintf("%d", rate)
}
