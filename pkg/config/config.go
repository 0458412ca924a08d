package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the complete application configuration
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	TTS       TTSConfig       `json:"tts"`
	STT       STTConfig       `json:"stt"`
	LLM       LLMConfig       `json:"llm"`
	Messaging MessagingConfig `json:"messaging"`
	Jobs      JobsConfig      `json:"jobs"`
}

// HTTPConfig holds the API server configuration
type HTTPConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	EnableMetrics   bool          `json:"enable_metrics"`
	EnableWebSocket bool          `json:"enable_websocket"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// StorageConfig holds audio artifact storage configuration
type StorageConfig struct {
	// Backend selects the artifact store: local, minio or memory
	Backend string `json:"backend"`

	// Root is the directory audio artifacts are written under
	Root string `json:"root"`

	// PublicPrefix is the URL prefix artifacts are exposed at
	PublicPrefix string `json:"public_prefix"`

	Minio MinioConfig `json:"minio"`
}

// MinioConfig holds S3-compatible object storage configuration
type MinioConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

// TTSConfig holds speech synthesis configuration
type TTSConfig struct {
	// DefaultProvider selects the synthesis backend: yating, openai or mock
	DefaultProvider string `json:"default_provider"`

	// SampleRate of the produced PCM audio in Hz
	SampleRate int `json:"sample_rate"`

	// CustomerVoice and AgentVoice map speaker roles to provider voices
	CustomerVoice string `json:"customer_voice"`
	AgentVoice    string `json:"agent_voice"`

	// DefaultPause is the silence inserted between dialogue lines
	DefaultPause time.Duration `json:"default_pause"`

	// RequestTimeout bounds an individual synthesis call so a hung
	// backend cannot stall a multi-line job indefinitely
	RequestTimeout time.Duration `json:"request_timeout"`

	Yating YatingConfig `json:"yating"`
}

// YatingConfig holds Yating TTS API configuration
type YatingConfig struct {
	Endpoint string  `json:"endpoint"`
	APIKey   string  `json:"-"`
	Speed    float64 `json:"speed"`
	Pitch    float64 `json:"pitch"`
	Energy   float64 `json:"energy"`
	Encoding string  `json:"encoding"`
}

// STTConfig holds speech-to-text configuration
type STTConfig struct {
	// DefaultProvider selects the transcription backend: openai, google or mock
	DefaultProvider string `json:"default_provider"`

	Model    string `json:"model"`
	Language string `json:"language"`
	Prompt   string `json:"prompt"`

	Google GoogleSTTConfig `json:"google"`
}

// GoogleSTTConfig holds Google Cloud Speech configuration
type GoogleSTTConfig struct {
	Enabled         bool   `json:"enabled"`
	APIKey          string `json:"-"`
	CredentialsFile string `json:"credentials_file"`
	Model           string `json:"model"`
	SampleRate      int    `json:"sample_rate"`
}

// LLMConfig holds semantic scorer configuration
type LLMConfig struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// MessagingConfig holds AMQP event publishing configuration
type MessagingConfig struct {
	AMQPUrl   string `json:"-"`
	QueueName string `json:"queue_name"`
}

// JobsConfig holds registry and dispatcher configuration
type JobsConfig struct {
	// Workers is the size of the dispatch worker pool
	Workers int `json:"workers"`

	// QueueSize is the dispatch queue depth
	QueueSize int `json:"queue_size"`

	// RetentionAge is how long terminal jobs are kept before cleanup
	RetentionAge time.Duration `json:"retention_age"`

	// CleanupInterval is how often the retention pass runs
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// OpenAIAPIKey returns the shared OpenAI credential used by the TTS,
// STT and LLM backends.
func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// Load reads configuration from the environment, applying defaults
func Load(logger *logrus.Logger) (*Config, error) {
	// Load .env file if present; a missing file is not an error
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:            getEnvInt("HTTP_PORT", 8080),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			EnableMetrics:   getEnvBool("HTTP_ENABLE_METRICS", true),
			EnableWebSocket: getEnvBool("HTTP_ENABLE_WEBSOCKET", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Storage: StorageConfig{
			Backend:      getEnv("STORAGE_BACKEND", "local"),
			Root:         getEnv("STORAGE_ROOT", "./storage/audio"),
			PublicPrefix: getEnv("STORAGE_PUBLIC_PREFIX", "/storage/audio"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "voiceqa-audio"),
				Region:    getEnv("MINIO_REGION", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", true),
			},
		},
		TTS: TTSConfig{
			DefaultProvider: getEnv("TTS_PROVIDER", "yating"),
			SampleRate:      getEnvInt("TTS_SAMPLE_RATE", 16000),
			CustomerVoice:   getEnv("TTS_VOICE_CUSTOMER", "zh_en_female_1"),
			AgentVoice:      getEnv("TTS_VOICE_AGENT", "zh_en_male_1"),
			DefaultPause:    getEnvDuration("TTS_DEFAULT_PAUSE", time.Second),
			RequestTimeout:  getEnvDuration("TTS_REQUEST_TIMEOUT", 120*time.Second),
			Yating: YatingConfig{
				Endpoint: getEnv("YATING_TTS_ENDPOINT", "https://tts.api.yating.tw/v2/speeches/short"),
				APIKey:   getEnv("YATING_API_KEY", ""),
				Speed:    getEnvFloat("YATING_TTS_SPEED", 1.0),
				Pitch:    getEnvFloat("YATING_TTS_PITCH", 1.0),
				Energy:   getEnvFloat("YATING_TTS_ENERGY", 1.0),
				Encoding: getEnv("YATING_TTS_ENCODING", "LINEAR16"),
			},
		},
		STT: STTConfig{
			DefaultProvider: getEnv("STT_PROVIDER", "openai"),
			Model:           getEnv("STT_MODEL", "gpt-4o-transcribe"),
			Language:        getEnv("STT_LANGUAGE", "zh"),
			Prompt:          getEnv("STT_PROMPT", "繁體中文"),
			Google: GoogleSTTConfig{
				Enabled:         getEnvBool("GOOGLE_STT_ENABLED", false),
				APIKey:          getEnv("GOOGLE_STT_API_KEY", ""),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
				Model:           getEnv("GOOGLE_STT_MODEL", "latest_long"),
				SampleRate:      getEnvInt("GOOGLE_STT_SAMPLE_RATE", 16000),
			},
		},
		LLM: LLMConfig{
			Model:     getEnv("LLM_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 800),
		},
		Messaging: MessagingConfig{
			AMQPUrl:   getEnv("AMQP_URL", ""),
			QueueName: getEnv("AMQP_QUEUE_NAME", "voiceqa_events"),
		},
		Jobs: JobsConfig{
			Workers:         getEnvInt("JOB_WORKERS", 4),
			QueueSize:       getEnvInt("JOB_QUEUE_SIZE", 64),
			RetentionAge:    getEnvDuration("JOB_RETENTION_AGE", 7*24*time.Hour),
			CleanupInterval: getEnvDuration("JOB_CLEANUP_INTERVAL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"http_port":    cfg.HTTP.Port,
		"storage":      cfg.Storage.Backend,
		"tts_provider": cfg.TTS.DefaultProvider,
		"stt_provider": cfg.STT.DefaultProvider,
		"llm_model":    cfg.LLM.Model,
		"job_workers":  cfg.Jobs.Workers,
	}).Info("Configuration loaded")

	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}

	switch c.Storage.Backend {
	case "local", "memory":
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT must be set when STORAGE_BACKEND is minio")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.TTS.SampleRate <= 0 {
		return fmt.Errorf("invalid TTS sample rate: %d", c.TTS.SampleRate)
	}

	if c.TTS.DefaultProvider == "yating" && c.TTS.Yating.APIKey == "" {
		return fmt.Errorf("YATING_API_KEY must be set when TTS_PROVIDER is yating")
	}

	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("job worker count must be positive: %d", c.Jobs.Workers)
	}

	root := c.Storage.Root
	if c.Storage.Backend != "memory" {
		if err := os.MkdirAll(filepath.Clean(root), 0o755); err != nil {
			return fmt.Errorf("cannot create storage root %s: %w", root, err)
		}
	}

	return nil
}

// ConfigureLogger applies the logging configuration to a logrus logger
func (c *Config) ConfigureLogger(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(c.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
