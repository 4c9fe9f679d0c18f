// Package openai implements inference.Provider with chat completions for text
// and the images API for illustrations.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/at-ishikawa/genius/internal/inference"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient   *resty.Client
	imageHTTP    *http.Client
	baseURL      string
	model        string
	imageModel   string
	systemPrompt string
}

func NewClient(baseURL, model, imageModel string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Client{
		httpClient:   client,
		imageHTTP:    &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		imageModel:   imageModel,
		systemPrompt: defaultSystemPrompt,
	}
}

const defaultSystemPrompt = `You create educational content for Israeli children and their parents.
Write all child-facing text in natural, age-appropriate Hebrew.
Respond with a single JSON document that follows the provided schema and nothing else.`

func (client *Client) Close() error {
	return client.httpClient.Close()
}

func (client *Client) Name() string {
	return "openai"
}

// GetModel returns the text model name configured for this client
func (client *Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string            `json:"name"`
	Schema *inference.Schema `json:"schema"`
	Strict bool              `json:"strict"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateJSON implements inference.Provider
func (client *Client) GenerateJSON(ctx context.Context, apiKey, prompt string, schema *inference.Schema) (string, error) {
	requestBody := ChatCompletionRequest{
		Model:       client.model,
		Temperature: 0.8,
		Messages: []Message{
			{Role: RoleSystem, Content: client.systemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   "content",
				Schema: schema,
			},
		},
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return "", &inference.HTTPStatusError{StatusCode: response.StatusCode(), Body: response.String()}
	}

	responseBody, ok := response.Result().(*ChatCompletionResponse)
	if !ok || responseBody == nil || len(responseBody.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response body or choices", inference.ErrGenerationFormat)
	}

	choice := responseBody.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	slog.Default().Debug("openai response content",
		"model", responseBody.Model,
		"finish_reason", choice.FinishReason,
		"total_tokens", responseBody.Usage.TotalTokens,
		"content", content,
	)
	if content == "" {
		return "", fmt.Errorf("%w: empty response content", inference.ErrGenerationFormat)
	}
	return content, nil
}

// GenerateImage implements inference.Provider. The images API has no
// reference input, so the reference is ignored.
func (client *Client) GenerateImage(ctx context.Context, apiKey, prompt string, _ *inference.Image) (*inference.Image, error) {
	config := goopenai.DefaultConfig(apiKey)
	config.BaseURL = client.baseURL
	config.HTTPClient = client.imageHTTP
	imageClient := goopenai.NewClientWithConfig(config)

	response, err := imageClient.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          client.imageModel,
		N:              1,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, nil
	}
	return &inference.Image{
		MIMEType: "image/png",
		Data:     response.Data[0].B64JSON,
	}, nil
}

// toStatusError keeps the HTTP status so retries and credential errors are classified
func toStatusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &inference.HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var requestErr *goopenai.RequestError
	if errors.As(err, &requestErr) && requestErr.HTTPStatusCode > 0 {
		return &inference.HTTPStatusError{StatusCode: requestErr.HTTPStatusCode, Body: requestErr.Error()}
	}
	return fmt.Errorf("CreateImage > %w", err)
}
