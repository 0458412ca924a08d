package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/media"
)

func yatingTestProvider(endpoint string) *YatingProvider {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewYatingProvider(logger, &config.YatingConfig{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Speed:    1.0,
		Pitch:    1.0,
		Energy:   1.0,
		Encoding: "LINEAR16",
	}, 16000, 5*time.Second)
}

func TestYatingSynthesizeRequestShape(t *testing.T) {
	var captured yatingRequest
	var apiKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		pcm := media.Silence(0.1, 16000)
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(pcm),
		})
	}))
	defer server.Close()

	provider := yatingTestProvider(server.URL)
	require.NoError(t, provider.Initialize())

	pcm, err := provider.Synthesize(context.Background(), "你好", "zh_en_female_1")
	require.NoError(t, err)
	assert.Len(t, pcm, 3200) // 0.1s at 16kHz, 16-bit

	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "你好", captured.Input.Text)
	assert.Equal(t, "text", captured.Input.Type)
	assert.Equal(t, "zh_en_female_1", captured.Voice.Model)
	assert.Equal(t, "LINEAR16", captured.AudioConfig.Encoding)
	assert.Equal(t, "16K", captured.AudioConfig.SampleRate)
}

func TestYatingSynthesizeStripsWAVContainer(t *testing.T) {
	pcm := media.Silence(0.05, 16000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Respond with a full WAV container; the provider must
		// hand back bare samples.
		wav := append(wavHeaderFor(t, pcm), pcm...)
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(wav),
		})
	}))
	defer server.Close()

	provider := yatingTestProvider(server.URL)
	out, err := provider.Synthesize(context.Background(), "測試", "zh_en_male_1")
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
}

func wavHeaderFor(t *testing.T, pcm []byte) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "h.wav")
	require.NoError(t, media.WriteWAV(path, pcm, 16000))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data[:44]
}

func TestYatingSynthesizeEmptyText(t *testing.T) {
	provider := yatingTestProvider("http://unused.invalid")
	_, err := provider.Synthesize(context.Background(), "   ", "zh_en_female_1")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestYatingSynthesizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	provider := yatingTestProvider(server.URL)
	_, err := provider.Synthesize(context.Background(), "你好", "zh_en_female_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestYatingInitializeRequiresKey(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	provider := NewYatingProvider(logger, &config.YatingConfig{Endpoint: "http://x"}, 16000, time.Second)
	assert.Error(t, provider.Initialize())
}

func TestSampleRateLabel(t *testing.T) {
	assert.Equal(t, "16K", sampleRateLabel(16000))
	assert.Equal(t, "8K", sampleRateLabel(8000))
	assert.Equal(t, "44100", sampleRateLabel(44100))
}
