package config

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "mock")

	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, 16000, cfg.TTS.SampleRate)
	assert.Equal(t, "zh_en_female_1", cfg.TTS.CustomerVoice)
	assert.Equal(t, "zh_en_male_1", cfg.TTS.AgentVoice)
	assert.Equal(t, time.Second, cfg.TTS.DefaultPause)
	assert.Equal(t, "openai", cfg.STT.DefaultProvider)
	assert.Equal(t, "zh", cfg.STT.Language)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.Equal(t, 7*24*time.Hour, cfg.Jobs.RetentionAge)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("JOB_WORKERS", "8")
	t.Setenv("TTS_DEFAULT_PAUSE", "500ms")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 8, cfg.Jobs.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.TTS.DefaultPause)
	assert.Equal(t, "google", cfg.STT.DefaultProvider)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRequiresYatingKey(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "yating")
	t.Setenv("YATING_API_KEY", "")

	_, err := Load(testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YATING_API_KEY")
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load(testLogger())
	assert.Error(t, err)
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("STORAGE_BACKEND", "tape")

	_, err := Load(testLogger())
	assert.Error(t, err)
}

func TestValidateMinioNeedsEndpoint(t *testing.T) {
	t.Setenv("STORAGE_ROOT", filepath.Join(t.TempDir(), "audio"))
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_ENDPOINT", "")

	_, err := Load(testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MINIO_ENDPOINT")
}

func TestConfigureLogger(t *testing.T) {
	logger := testLogger()
	cfg := &Config{Logging: LoggingConfig{Level: "warn", Format: "json"}}
	cfg.ConfigureLogger(logger)

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	cfg = &Config{Logging: LoggingConfig{Level: "not-a-level", Format: "text"}}
	cfg.ConfigureLogger(logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_STRING", "hello")
	t.Setenv("X_INT", "42")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_FLOAT", "1.5")
	t.Setenv("X_DURATION", "90s")

	assert.Equal(t, "hello", getEnv("X_STRING", "fallback"))
	assert.Equal(t, "fallback", getEnv("X_UNSET", "fallback"))
	assert.Equal(t, 42, getEnvInt("X_INT", 0))
	assert.Equal(t, 7, getEnvInt("X_UNSET", 7))
	assert.True(t, getEnvBool("X_BOOL", false))
	assert.Equal(t, 1.5, getEnvFloat("X_FLOAT", 0))
	assert.Equal(t, 90*time.Second, getEnvDuration("X_DURATION", 0))
	assert.Equal(t, time.Minute, getEnvDuration("X_UNSET", time.Minute))
}
