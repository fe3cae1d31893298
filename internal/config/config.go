package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Nats     NatsConfig
	Auth     AuthConfig
	TTS      TTSConfig
	Kokoro   KokoroConfig
	OpenAI   OpenAIConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	LogLevel       string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NatsConfig struct {
	URL string // empty disables event publishing
}

type AuthConfig struct {
	JWTSecret string // empty disables bearer auth
}

type TTSConfig struct {
	DefaultProvider     string
	DefaultVoice        string
	DefaultLanguage     string
	SampleRate          int
	MockSampleRate      int
	MaxTextLength       int
	NoiseGateThreshold  float64
	EnableNormalization bool
	NormalizeTarget     float64
}

type WorkerConfig struct {
	Concurrency int
}

type KokoroConfig struct {
	ModelPath     string
	VoicesPath    string
	EngineBin     string
	EspeakLibrary string
	EspeakData    string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
	Voice  string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimitRPS, err := getEnvFloat("SERVER_RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_RATE_LIMIT_RPS: %w", err)
	}

	rateLimitBurst, err := getEnvInt("SERVER_RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_RATE_LIMIT_BURST: %w", err)
	}

	sampleRate, err := getEnvInt("TTS_SAMPLE_RATE", 24000)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_SAMPLE_RATE: %w", err)
	}

	mockSampleRate, err := getEnvInt("TTS_MOCK_SAMPLE_RATE", 16000)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MOCK_SAMPLE_RATE: %w", err)
	}

	maxTextLength, err := getEnvInt("TTS_MAX_TEXT_LENGTH", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MAX_TEXT_LENGTH: %w", err)
	}

	gateThreshold, err := getEnvFloat("TTS_NOISE_GATE_THRESHOLD", 0.003)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_NOISE_GATE_THRESHOLD: %w", err)
	}

	enableNormalization, err := getEnvBool("TTS_ENABLE_NORMALIZATION", true)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_ENABLE_NORMALIZATION: %w", err)
	}

	normalizeTarget, err := getEnvFloat("TTS_NORMALIZE_TARGET", 0.95)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_NORMALIZE_TARGET: %w", err)
	}

	workerConcurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			CORSOrigins:    splitList(getEnv("SERVER_CORS_ORIGINS", "*")),
			RateLimitRPS:   rateLimitRPS,
			RateLimitBurst: rateLimitBurst,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Nats: NatsConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		TTS: TTSConfig{
			DefaultProvider:     getEnv("TTS_DEFAULT_PROVIDER", "kokoro"),
			DefaultVoice:        getEnv("TTS_DEFAULT_VOICE", "af_alloy"),
			DefaultLanguage:     getEnv("TTS_DEFAULT_LANGUAGE", "en-us"),
			SampleRate:          sampleRate,
			MockSampleRate:      mockSampleRate,
			MaxTextLength:       maxTextLength,
			NoiseGateThreshold:  gateThreshold,
			EnableNormalization: enableNormalization,
			NormalizeTarget:     normalizeTarget,
		},
		Kokoro: KokoroConfig{
			ModelPath:     getEnv("KOKORO_MODEL_PATH", "models/kokoro/kokoro-v1.0.onnx"),
			VoicesPath:    getEnv("KOKORO_VOICES_PATH", "models/kokoro/voices-v1.0.bin"),
			EngineBin:     getEnv("KOKORO_ENGINE_BIN", "kokoro-tts"),
			EspeakLibrary: getEnv("ESPEAK_LIBRARY_PATH", ""),
			EspeakData:    getEnv("ESPEAK_DATA_PATH", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("TTS_OPENAI_MODEL", "tts-1"),
			Voice:  getEnv("TTS_OPENAI_VOICE", "alloy"),
		},
		Worker: WorkerConfig{
			Concurrency: workerConcurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var bad []string
	if c.TTS.SampleRate <= 0 {
		bad = append(bad, "TTS_SAMPLE_RATE must be positive")
	}
	if c.TTS.MaxTextLength <= 0 {
		bad = append(bad, "TTS_MAX_TEXT_LENGTH must be positive")
	}
	if c.TTS.NormalizeTarget < 0 || c.TTS.NormalizeTarget > 1 {
		bad = append(bad, "TTS_NORMALIZE_TARGET must be within [0, 1]")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		bad = append(bad, "SERVER_RATE_LIMIT_RPS and SERVER_RATE_LIMIT_BURST must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		bad = append(bad, "WORKER_CONCURRENCY must be positive")
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(bad, "; "))
	}
	return nil
}

// SlogLevel maps the configured level name onto slog's scale, defaulting
// to info for anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}
