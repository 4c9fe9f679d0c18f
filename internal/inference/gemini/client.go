// Package gemini implements inference.Provider on the Gemini generateContent REST API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/at-ishikawa/genius/internal/inference"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Client struct {
	httpClient *resty.Client
	textModel  string
	imageModel string
}

func NewClient(baseURL, textModel, imageModel string, timeout time.Duration) *Client {
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
		httpClient: client,
		textModel:  textModel,
		imageModel: imageModel,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

func (client *Client) Name() string {
	return "gemini"
}

type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GenerationConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema  `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float32 `json:"temperature,omitempty"`
}

// Schema is the OpenAPI flavoured schema Gemini expects, with upper-case types
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Required         []string           `json:"required,omitempty"`
	Enum             []string           `json:"enum,omitempty"`
	Format           string             `json:"format,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

func toSchema(schema *inference.Schema) *Schema {
	if schema == nil {
		return nil
	}
	converted := &Schema{
		Type:             strings.ToUpper(string(schema.Type)),
		Description:      schema.Description,
		PropertyOrdering: schema.PropertyOrdering,
		Items:            toSchema(schema.Items),
		Required:         schema.Required,
		Enum:             schema.Enum,
	}
	if len(schema.Enum) > 0 {
		converted.Format = "enum"
	}
	if len(schema.Properties) > 0 {
		converted.Properties = make(map[string]*Schema, len(schema.Properties))
		for name, property := range schema.Properties {
			converted.Properties[name] = toSchema(property)
		}
	}
	return converted
}

func (client *Client) generateContent(ctx context.Context, apiKey, model string, body GenerateContentRequest) (*GenerateContentResponse, error) {
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", apiKey).
		SetBody(body).
		SetResult(&GenerateContentResponse{}).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return nil, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return nil, &inference.HTTPStatusError{StatusCode: response.StatusCode(), Body: response.String()}
	}

	responseBody, ok := response.Result().(*GenerateContentResponse)
	if !ok || responseBody == nil {
		return nil, fmt.Errorf("empty response body: %s", response.String())
	}
	return responseBody, nil
}

// GenerateJSON implements inference.Provider
func (client *Client) GenerateJSON(ctx context.Context, apiKey, prompt string, schema *inference.Schema) (string, error) {
	temperature := float32(0.8)
	requestBody := GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   toSchema(schema),
			Temperature:      &temperature,
		},
	}

	responseBody, err := client.generateContent(ctx, apiKey, client.textModel, requestBody)
	if err != nil {
		return "", err
	}
	if responseBody.PromptFeedback != nil && responseBody.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", responseBody.PromptFeedback.BlockReason)
	}
	if len(responseBody.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", inference.ErrGenerationFormat)
	}

	var text strings.Builder
	for _, part := range responseBody.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	content := strings.TrimSpace(text.String())
	slog.Default().Debug("gemini response content",
		"model", client.textModel,
		"finish_reason", responseBody.Candidates[0].FinishReason,
		"content", content,
	)
	if content == "" {
		return "", fmt.Errorf("%w: empty response content", inference.ErrGenerationFormat)
	}
	return content, nil
}

// GenerateImage implements inference.Provider. A response without image data returns nil.
func (client *Client) GenerateImage(ctx context.Context, apiKey, prompt string, reference *inference.Image) (*inference.Image, error) {
	parts := []Part{{Text: prompt}}
	if reference != nil && reference.Data != "" {
		parts = append(parts,
			Part{Text: "Use the attached photo only as a visual reference for the main character's appearance."},
			Part{InlineData: &InlineData{MimeType: reference.MIMEType, Data: reference.Data}},
		)
	}
	requestBody := GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: parts}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	responseBody, err := client.generateContent(ctx, apiKey, client.imageModel, requestBody)
	if err != nil {
		return nil, err
	}
	for _, candidate := range responseBody.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return &inference.Image{
					MIMEType: part.InlineData.MimeType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}
	return nil, nil
}
