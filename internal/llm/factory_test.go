package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "openai", provider: "openai"},
		{name: "anthropic upper case", provider: "Anthropic"},
		{name: "gemini", provider: "gemini"},
		{name: "unknown", provider: "llama", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), Config{Provider: tt.provider, APIKey: "k"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewTranscriber(t *testing.T) {
	tr, err := NewTranscriber(context.Background(), Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openAIClient{}, tr)

	tr, err = NewTranscriber(context.Background(), Config{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Nil(t, tr)

	tr, err = NewTranscriber(context.Background(), Config{Provider: "anthropic", APIKey: "k", Transcriber: "whisper", TranscriberKey: "ok"})
	require.NoError(t, err)
	openai, ok := tr.(*openAIClient)
	require.True(t, ok)
	assert.Equal(t, "ok", openai.apiKey)
	assert.Equal(t, openAIBaseURL, openai.baseURL)

	_, err = NewTranscriber(context.Background(), Config{Provider: "openai", APIKey: "k", Transcriber: "parrot"})
	assert.Error(t, err)
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(context.Background(), Config{Provider: "openai", APIKey: "k", RateLimit: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.provider)
	assert.Equal(t, 5, c.limiter.Burst())

	_, err = NewClassifier(context.Background(), Config{Provider: "openai"}, nil)
	assert.Error(t, err)
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt()
	for _, c := range append(model.ExpenseCategories, model.IncomeCategories...) {
		assert.Contains(t, prompt, c)
	}
	assert.Contains(t, prompt, `"confidence"`)
	assert.True(t, strings.HasPrefix(DataURI("image/jpeg", []byte("hi")), "data:image/jpeg;base64,aGk="))
}
