package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Error definitions
var (
	ErrNoTranscriberAvailable = errors.New("no speech-to-text backend available")
	ErrInitializationFailed   = errors.New("transcriber initialization failed")
	ErrAudioTooSmall          = errors.New("audio file too small to contain usable speech")
	ErrAudioTooLarge          = errors.New("audio file exceeds backend size limit")
	ErrEmptyTranscript        = errors.New("no speech recognized in audio")
)

// Size bounds for submitted audio. Files below the minimum carry no
// usable signal; files above the maximum are rejected by the backends.
const (
	MinAudioSize = 1024
	MaxAudioSize = 25 * 1024 * 1024
)

// Result is a completed transcription.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcriber defines the interface for batch speech-to-text backends.
type Transcriber interface {
	// Initialize initializes the backend with any required configuration
	Initialize() error

	// Name returns the backend name
	Name() string

	// TranscribeFile submits an audio file and returns its transcript
	TranscribeFile(ctx context.Context, path string) (*Result, error)

	// Ping performs a trivial round-trip to verify the backend is reachable
	Ping(ctx context.Context) error
}

// ValidateAudioFile enforces the size bounds before submission.
func ValidateAudioFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("audio file not accessible: %w", err)
	}

	size := info.Size()
	if size < MinAudioSize {
		return size, fmt.Errorf("%w: %d bytes", ErrAudioTooSmall, size)
	}
	if size > MaxAudioSize {
		return size, fmt.Errorf("%w: %.1f MB over 25 MB limit", ErrAudioTooLarge, float64(size)/1024/1024)
	}
	return size, nil
}
