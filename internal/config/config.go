package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/archive"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/events"
	"github.com/Veraticus/spice-capture/internal/llm"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultStoragePath       = "~/.local/share/spice/capture.db"
	DefaultOwnerID           = "local"
	DefaultServerAddr        = "127.0.0.1:8787"
	DefaultSessionTTL        = 30 * time.Minute
	DefaultMaxRecordingBytes = 25 << 20
	DefaultMaxImageBytes     = 10 << 20
)

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// CaptureConfig controls the local capture devices.
type CaptureConfig struct {
	RecorderCommand   []string
	RecorderMIMEType  string
	MaxRecordingBytes int64
	MaxImageBytes     int64
}

// ServerConfig controls the HTTP capture API.
type ServerConfig struct {
	Addr       string
	SessionTTL time.Duration
	RateLimit  float64
	RateBurst  int
}

// Config is the typed application configuration.
type Config struct {
	Logging     LoggingConfig
	Events      events.Config
	Archive     archive.Config
	StoragePath string
	OwnerID     string
	Server      ServerConfig
	LLM         llm.Config
	Capture     CaptureConfig
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.rate_limit", 20)
	v.SetDefault("llm.language", "en-US")
	v.SetDefault("storage.path", DefaultStoragePath)
	v.SetDefault("owner_id", DefaultOwnerID)
	v.SetDefault("capture.recorder_mime_type", "audio/wav")
	v.SetDefault("capture.max_recording_bytes", DefaultMaxRecordingBytes)
	v.SetDefault("capture.max_image_bytes", DefaultMaxImageBytes)
	v.SetDefault("archive.kind", archive.KindNone)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.topic", events.DefaultTopic)
	v.SetDefault("events.principal", "spice-capture")
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.session_ttl", DefaultSessionTTL)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
}

// Load reads the configuration from v, which should already have its config
// file, environment and flags bound. Provider API keys fall back to their
// conventional environment variables.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		LLM: llm.Config{
			Provider:         strings.ToLower(v.GetString("llm.provider")),
			APIKey:           v.GetString("llm.api_key"),
			Model:            v.GetString("llm.model"),
			BaseURL:          v.GetString("llm.base_url"),
			Transcriber:      strings.ToLower(v.GetString("llm.transcriber")),
			TranscriberModel: v.GetString("llm.transcriber_model"),
			TranscriberKey:   v.GetString("llm.transcriber_api_key"),
			Language:         v.GetString("llm.language"),
			CredentialsFile:  ExpandPath(v.GetString("llm.credentials_file")),
			Timeout:          v.GetDuration("llm.timeout"),
			RateLimit:        v.GetInt("llm.rate_limit"),
			Temperature:      v.GetFloat64("llm.temperature"),
			MaxTokens:        v.GetInt("llm.max_tokens"),
		},
		StoragePath: ExpandPath(v.GetString("storage.path")),
		OwnerID:     strings.TrimSpace(v.GetString("owner_id")),
		Capture: CaptureConfig{
			RecorderCommand:   v.GetStringSlice("capture.recorder_command"),
			RecorderMIMEType:  v.GetString("capture.recorder_mime_type"),
			MaxRecordingBytes: v.GetInt64("capture.max_recording_bytes"),
			MaxImageBytes:     v.GetInt64("capture.max_image_bytes"),
		},
		Archive: archive.Config{
			Kind:            strings.ToLower(v.GetString("archive.kind")),
			Path:            ExpandPath(v.GetString("archive.path")),
			Bucket:          v.GetString("archive.bucket"),
			Prefix:          v.GetString("archive.prefix"),
			CredentialsFile: ExpandPath(v.GetString("archive.credentials_file")),
		},
		Events: events.Config{
			Enabled:   v.GetBool("events.enabled"),
			Brokers:   v.GetStringSlice("events.brokers"),
			Topic:     v.GetString("events.topic"),
			Principal: v.GetString("events.principal"),
		},
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			SessionTTL: v.GetDuration("server.session_ttl"),
			RateLimit:  v.GetFloat64("server.rate_limit"),
			RateBurst:  v.GetInt("server.rate_burst"),
		},
	}

	// Override with direct environment variables if not set
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	if cfg.LLM.TranscriberKey == "" && cfg.LLM.Transcriber != "" && cfg.LLM.Transcriber != cfg.LLM.Provider {
		cfg.LLM.TranscriberKey = providerKey(cfg.LLM.Transcriber)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func providerKey(provider string) string {
	var names []string
	switch provider {
	case "openai", "whisper":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic":
		names = []string{"ANTHROPIC_API_KEY"}
	case "gemini":
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.OwnerID == "" {
		return fmt.Errorf("%w: owner_id", common.ErrMissingConfig)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("%w: storage.path", common.ErrMissingConfig)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}
	if c.Capture.MaxRecordingBytes < 0 || c.Capture.MaxImageBytes < 0 {
		return fmt.Errorf("%w: capture size limits cannot be negative", common.ErrInvalidConfig)
	}
	switch c.Archive.Kind {
	case "", archive.KindNone:
	case archive.KindDir:
		if c.Archive.Path == "" {
			return fmt.Errorf("%w: archive.path", common.ErrMissingConfig)
		}
	case archive.KindGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("%w: archive.bucket", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown archive kind %q", common.ErrInvalidConfig, c.Archive.Kind)
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("%w: events.brokers", common.ErrMissingConfig)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("%w: server.session_ttl must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// RequireAPIKey reports a missing classification credential. Commands that
// never classify do not call it.
func (c Config) RequireAPIKey() error {
	if c.LLM.Provider == "gemini" && c.LLM.CredentialsFile != "" {
		return nil
	}
	if c.LLM.APIKey == "" {
		return common.NewUserError(
			fmt.Sprintf("No API key for %s. Set llm.api_key or the provider's environment variable.", c.LLM.Provider),
			fmt.Errorf("%w: llm.api_key", common.ErrMissingConfig))
	}
	return nil
}
