package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, DefaultOwnerID, cfg.OwnerID)
	assert.Equal(t, DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.Equal(t, int64(DefaultMaxImageBytes), cfg.Capture.MaxImageBytes)
	assert.Equal(t, "none", cfg.Archive.Kind)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "transactions.created", cfg.Events.Topic)
	assert.False(t, filepath.IsAbs(DefaultStoragePath))
	assert.True(t, filepath.IsAbs(cfg.StoragePath), cfg.StoragePath)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
llm:
  provider: Gemini
  api_key: g-key
  transcriber: google-speech
  timeout: 5s
owner_id: alice
archive:
  kind: dir
  path: `+dir+`/media
events:
  enabled: true
  brokers:
    - "kafka-1:9092"
    - "kafka-2:9092"
capture:
  recorder_command: ["arecord", "-q", "-f", "cd", "-t", "wav"]
server:
  session_ttl: 10m
`), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "google-speech", cfg.LLM.Transcriber)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "alice", cfg.OwnerID)
	assert.Equal(t, dir+"/media", cfg.Archive.Path)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, []string{"arecord", "-q", "-f", "cd", "-t", "wav"}, cfg.Capture.RecorderCommand)
	assert.Equal(t, 10*time.Minute, cfg.Server.SessionTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		values  map[string]any
		wantErr error
		name    string
	}{
		{name: "bad level", values: map[string]any{"logging.level": "loud"}, wantErr: common.ErrInvalidConfig},
		{name: "bad format", values: map[string]any{"logging.format": "xml"}, wantErr: common.ErrInvalidConfig},
		{name: "empty owner", values: map[string]any{"owner_id": " "}, wantErr: common.ErrMissingConfig},
		{name: "dir archive without path", values: map[string]any{"archive.kind": "dir"}, wantErr: common.ErrMissingConfig},
		{name: "gcs archive without bucket", values: map[string]any{"archive.kind": "gcs"}, wantErr: common.ErrMissingConfig},
		{name: "unknown archive", values: map[string]any{"archive.kind": "s3"}, wantErr: common.ErrInvalidConfig},
		{name: "events without brokers", values: map[string]any{"events.enabled": true}, wantErr: common.ErrMissingConfig},
		{name: "temperature out of range", values: map[string]any{"llm.temperature": 3.5}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	v := viper.New()
	v.Set("llm.provider", "anthropic")
	cfg, err := Load(v)
	require.NoError(t, err)

	err = cfg.RequireAPIKey()
	require.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Contains(t, common.UserMessage(err), "anthropic")
}

func TestLoad_TranscriberKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-whisper")

	v := viper.New()
	v.Set("llm.provider", "anthropic")
	v.Set("llm.api_key", "ak")
	v.Set("llm.transcriber", "whisper")
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "ak", cfg.LLM.APIKey)
	assert.Equal(t, "sk-whisper", cfg.LLM.TranscriberKey)
}
