package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-capture/internal/model"
	"google.golang.org/genai"
)

// geminiClient implements Client and Transcriber with the Gemini API.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.timeout()},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &geminiClient{
		client:      client,
		model:       modelName,
		temperature: float32(cfg.temperature()),
		maxTokens:   int32(cfg.maxTokens()), //nolint:gosec // bounded by configuration
	}, nil
}

// ClassifyText sends the user's text.
func (c *geminiClient) ClassifyText(ctx context.Context, content string) (string, error) {
	return c.generate(ctx, []*genai.Part{{Text: content}}, true)
}

// ClassifyImage sends the image inline.
func (c *geminiClient) ClassifyImage(ctx context.Context, image model.PhotoPayload) (string, error) {
	return c.generate(ctx, []*genai.Part{
		{Text: ImageInstruction},
		{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data}},
	}, true)
}

// Transcribe asks the model for a transcript of the inline recording.
func (c *geminiClient) Transcribe(ctx context.Context, audio model.AudioPayload) (string, error) {
	return c.generate(ctx, []*genai.Part{
		{Text: TranscriptionInstruction},
		{InlineData: &genai.Blob{MIMEType: audio.MIMEType, Data: audio.Data}},
	}, false)
}

func (c *geminiClient) generate(ctx context.Context, parts []*genai.Part, classify bool) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if classify {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt()}}}
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", genaiError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", malformed("gemini", "empty response from model")
	}
	return text, nil
}
