package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/model"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAIClient implements Client and Transcriber for the OpenAI API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	speechModel string
	language    string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o"
	}
	speechModel := cfg.TranscriberModel
	if speechModel == "" {
		speechModel = "whisper-1"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       modelName,
		speechModel: speechModel,
		language:    cfg.Language,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		httpClient:  newHTTPClient(cfg.timeout()),
	}, nil
}

type openAIMessage struct {
	Content any    `json:"content"`
	Role    string `json:"role"`
}

type openAIContentPart struct {
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// ClassifyText sends the user's text with the system prompt.
func (c *openAIClient) ClassifyText(ctx context.Context, content string) (string, error) {
	return c.complete(ctx, []openAIMessage{
		{Role: "system", Content: SystemPrompt()},
		{Role: "user", Content: content},
	})
}

// ClassifyImage sends the image as a data URI content part.
func (c *openAIClient) ClassifyImage(ctx context.Context, image model.PhotoPayload) (string, error) {
	return c.complete(ctx, []openAIMessage{
		{Role: "system", Content: SystemPrompt()},
		{Role: "user", Content: []openAIContentPart{
			{Type: "text", Text: ImageInstruction},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: DataURI(image.MIMEType, image.Data)}},
		}},
	})
}

func (c *openAIClient) complete(ctx context.Context, messages []openAIMessage) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	body, err := postJSON(ctx, c.httpClient, "openai", c.baseURL+"/chat/completions", c.headers(), requestBody)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", malformed("openai", "failed to parse response: %v", err)
	}
	if len(response.Choices) == 0 {
		return "", malformed("openai", "no completion choices returned")
	}
	content := response.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", malformed("openai", "empty completion")
	}
	return content, nil
}

func (c *openAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Transcribe uploads the recording to the audio transcription endpoint.
func (c *openAIClient) Transcribe(ctx context.Context, audio model.AudioPayload) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "audio"+media.AudioExtension(audio.MIMEType))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := w.WriteField("model", c.speechModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if c.language != "" {
		if err := w.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := do(c.httpClient, "openai", req)
	if err != nil {
		return "", err
	}

	var response struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", malformed("openai", "failed to parse transcription: %v", err)
	}
	return response.Text, nil
}

// openAIResponse represents the OpenAI API response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
