package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cardline/backend/internal/model/speech"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server   ServerConfig
	Speech   SpeechConfig
	Store    StoreConfig
	Sessions SessionConfig
	Webhook  WebhookConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	speechConf, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	sessions, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Speech:   speechConf,
		Store:    loadStoreConfig(),
		Sessions: sessions,
		Webhook:  loadWebhookConfig(),
		Log:      loadLogConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		// Accept both ":8080" and a bare port number.
		addr = ":" + port
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return ServerConfig{Addr: addr, AllowedOrigins: origins}, nil
}

// SpeechConfig describes the upstream speech provider.
type SpeechConfig struct {
	BaseURL  string
	APIKey   string
	ChainURL string
	STTModel string
	LLMModel string
	TTSModel string
	Timeout  int
}

// Enabled reports whether the provider credentials are present.
func (c SpeechConfig) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// ServiceConfig converts the loaded settings into the speech client form.
func (c SpeechConfig) ServiceConfig() *speech.Config {
	return &speech.Config{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		ChainURL: c.ChainURL,
		STTModel: c.STTModel,
		LLMModel: c.LLMModel,
		TTSModel: c.TTSModel,
		Timeout:  c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return SpeechConfig{
		BaseURL:  getEnvOrDefault("SPEECH_BASE_URL", "https://api.hathora.dev/speech/v1"),
		APIKey:   strings.TrimSpace(os.Getenv("SPEECH_API_KEY")),
		ChainURL: strings.TrimSpace(os.Getenv("SPEECH_CHAIN_URL")),
		STTModel: getEnvOrDefault("SPEECH_STT_MODEL", "whisper-1"),
		LLMModel: getEnvOrDefault("SPEECH_LLM_MODEL", "gpt-4o-mini"),
		TTSModel: getEnvOrDefault("SPEECH_TTS_MODEL", "tts-1"),
		Timeout:  timeoutSeconds,
	}, nil
}

// StoreConfig points at the customer data file.
type StoreConfig struct {
	CustomerFile string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		CustomerFile: getEnvOrDefault("CUSTOMER_STORE_PATH", "data/customers.json"),
	}
}

// SessionConfig bounds retention of finished sessions.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseOptionalDurationEnv("SESSION_TTL")
	if err != nil {
		return SessionConfig{}, err
	}
	sweep, err := parseOptionalDurationEnv("SESSION_SWEEP_INTERVAL")
	if err != nil {
		return SessionConfig{}, err
	}

	conf := SessionConfig{TTL: 30 * time.Minute, SweepInterval: 5 * time.Minute}
	if ttl != nil {
		conf.TTL = *ttl
	}
	if sweep != nil {
		conf.SweepInterval = *sweep
	}
	return conf, nil
}

// WebhookConfig holds the shared secret for telephony callbacks. An empty
// secret disables verification.
type WebhookConfig struct {
	Secret string
}

func loadWebhookConfig() WebhookConfig {
	return WebhookConfig{Secret: strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))}
}

// LogConfig controls logger verbosity and output format.
type LogConfig struct {
	Debug  bool
	Pretty bool
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Debug:  envBool("LOG_DEBUG"),
		Pretty: envBool("LOG_PRETTY"),
	}
}

func envBool(key string) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && val
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
