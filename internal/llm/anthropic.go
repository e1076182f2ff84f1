package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-capture/internal/model"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

// anthropicClient implements Client for the Anthropic messages API.
// Anthropic has no speech endpoint, so audio needs a separate Transcriber.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "claude-3-5-sonnet-latest"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       modelName,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		httpClient:  newHTTPClient(cfg.timeout()),
	}, nil
}

type anthropicBlock struct {
	Source *anthropicSource `json:"source,omitempty"`
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ClassifyText sends the user's text.
func (c *anthropicClient) ClassifyText(ctx context.Context, content string) (string, error) {
	return c.send(ctx, []anthropicBlock{{Type: "text", Text: content}})
}

// ClassifyImage sends the image as a base64 image block.
func (c *anthropicClient) ClassifyImage(ctx context.Context, image model.PhotoPayload) (string, error) {
	return c.send(ctx, []anthropicBlock{
		{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: image.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(image.Data),
			},
		},
		{Type: "text", Text: ImageInstruction},
	})
}

func (c *anthropicClient) send(ctx context.Context, blocks []anthropicBlock) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      SystemPrompt(),
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": blocks,
			},
		},
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}
	body, err := postJSON(ctx, c.httpClient, "anthropic", c.baseURL+"/messages", headers, requestBody)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", malformed("anthropic", "failed to parse response: %v", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", malformed("anthropic", "no text content in response")
	}
	return sb.String(), nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
