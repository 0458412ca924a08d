package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/media"
)

// ErrSourceMissing is returned when the source audio does not exist
var ErrSourceMissing = errors.New("source audio file does not exist")

// Simulator produces the audio "heard on the other end" of a call for
// a given source recording.
type Simulator interface {
	// Simulate produces the response artifact for the source audio
	Simulate(ctx context.Context, sourcePath string) (*media.Artifact, error)
}

// MockSimulator is a stand-in for a real telephony loop. It plays the
// source audio through a lossy narrowband model: samples are attenuated
// the way a phone codec flattens dynamics, and the result is written as
// a new artifact.
type MockSimulator struct {
	logger *logrus.Logger

	// OutputDir is where response artifacts are written
	OutputDir string

	// Attenuation scales each sample; 1.0 passes audio through unchanged
	Attenuation float64
}

// NewMockSimulator creates a new mock call simulator
func NewMockSimulator(logger *logrus.Logger, outputDir string) *MockSimulator {
	return &MockSimulator{
		logger:      logger,
		OutputDir:   outputDir,
		Attenuation: 0.85,
	}
}

// Simulate copies the source recording through the narrowband model
func (s *MockSimulator) Simulate(ctx context.Context, sourcePath string) (*media.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, sourcePath)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source audio: %w", err)
	}

	pcm, sampleRate, err := media.ExtractPCM(data, 16000)
	if err != nil {
		return nil, fmt.Errorf("source audio is not valid WAV: %w", err)
	}

	processed := attenuate(pcm, s.Attenuation)

	name := fmt.Sprintf("response_%s.wav", uuid.New().String()[:8])
	outputPath := filepath.Join(s.OutputDir, name)
	if err := media.WriteWAV(outputPath, processed, sampleRate); err != nil {
		return nil, fmt.Errorf("failed to write response audio: %w", err)
	}

	artifact, err := media.ProbeWAV(outputPath)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":   filepath.Base(sourcePath),
		"response": name,
		"duration": artifact.Duration,
	}).Info("Call simulation produced response audio")

	return artifact, nil
}

// attenuate scales 16-bit little-endian samples in place-order.
func attenuate(pcm []byte, factor float64) []byte {
	if factor >= 1.0 || factor <= 0 {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out
	}

	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		scaled := int16(float64(sample) * factor)
		out[i] = byte(uint16(scaled) & 0xff)
		out[i+1] = byte(uint16(scaled) >> 8)
	}
	return out
}
