package tts

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Error definitions
var (
	ErrNoProviderAvailable = errors.New("no speech synthesis provider available")
	ErrProviderNotFound    = errors.New("requested speech synthesis provider not found")
	ErrEmptyText           = errors.New("cannot synthesize empty text")
)

// Provider defines the interface for speech synthesis providers.
// Synthesize returns mono 16-bit PCM samples at the provider's
// configured sample rate.
type Provider interface {
	// Initialize initializes the provider with any required configuration
	Initialize() error

	// Name returns the provider name
	Name() string

	// Synthesize converts a single utterance to PCM audio
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// Ping performs a trivial round-trip to verify the backend is reachable
	Ping(ctx context.Context) error
}

// ProviderManager manages all speech synthesis providers
type ProviderManager struct {
	logger          *logrus.Logger
	providers       map[string]Provider
	defaultProvider string
}

// NewProviderManager creates a new provider manager
func NewProviderManager(logger *logrus.Logger, defaultProvider string) *ProviderManager {
	return &ProviderManager{
		logger:          logger,
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// RegisterProvider registers a speech synthesis provider
func (m *ProviderManager) RegisterProvider(provider Provider) error {
	if err := provider.Initialize(); err != nil {
		m.logger.WithFields(logrus.Fields{
			"provider": provider.Name(),
			"error":    err,
		}).Error("Failed to initialize speech synthesis provider")
		return err
	}

	m.providers[provider.Name()] = provider
	m.logger.WithField("provider", provider.Name()).Info("Registered speech synthesis provider")

	return nil
}

// GetProvider returns a provider by name
func (m *ProviderManager) GetProvider(name string) (Provider, bool) {
	provider, exists := m.providers[name]
	return provider, exists
}

// GetDefaultProvider returns the default provider
func (m *ProviderManager) GetDefaultProvider() (Provider, bool) {
	return m.GetProvider(m.defaultProvider)
}

// Synthesize routes an utterance to the default provider.
func (m *ProviderManager) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	provider, exists := m.GetDefaultProvider()
	if !exists {
		return nil, ErrNoProviderAvailable
	}

	startTime := time.Now()
	audio, err := provider.Synthesize(ctx, text, voice)

	m.logger.WithFields(logrus.Fields{
		"provider":    provider.Name(),
		"voice":       voice,
		"text_len":    len(text),
		"duration_ms": time.Since(startTime).Milliseconds(),
		"error":       err != nil,
	}).Debug("Synthesis request completed")

	return audio, err
}

// Ping checks the default provider's backend
func (m *ProviderManager) Ping(ctx context.Context) error {
	provider, exists := m.GetDefaultProvider()
	if !exists {
		return ErrNoProviderAvailable
	}
	return provider.Ping(ctx)
}
