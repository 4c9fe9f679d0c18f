package inference

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client interface defines the generative operations the content workflows depend on
type Client interface {
	// GenerateStructured fills out with a JSON payload that satisfies req.Schema.
	GenerateStructured(ctx context.Context, req StructuredRequest, out any) error
	// GenerateImage returns nil without an error when the provider produced no image.
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}

// Provider is a single generative backend. apiKey is already resolved for the owner.
type Provider interface {
	Name() string
	GenerateJSON(ctx context.Context, apiKey string, prompt string, schema *Schema) (string, error)
	GenerateImage(ctx context.Context, apiKey string, prompt string, reference *Image) (*Image, error)
}

// KeyResolver resolves the provider credential for an owner
type KeyResolver interface {
	ResolveKey(ctx context.Context, ownerID string) (string, error)
}

type Operation string

const (
	OperationStoryPart        Operation = "story_part"
	OperationStoryImage       Operation = "story_image"
	OperationPlanStep         Operation = "plan_step"
	OperationWorksheet        Operation = "worksheet"
	OperationWorksheetImage   Operation = "worksheet_image"
	OperationWorkbook         Operation = "workbook"
	OperationGrading          Operation = "answer_grading"
	OperationTopicSuggestions Operation = "topic_suggestions"
)

type StructuredRequest struct {
	OwnerID   string
	Operation Operation
	Prompt    string
	Schema    *Schema
}

type ImageRequest struct {
	OwnerID   string
	Operation Operation
	Prompt    string
	// Reference is an optional visual reference such as the child's photo
	Reference *Image
}

// Image is a base64 encoded picture
type Image struct {
	MIMEType string `json:"mime_type" yaml:"mime_type"`
	Data     string `json:"data" yaml:"data"`
}

// DataURI renders the image for embedding in stored content
func (image *Image) DataURI() string {
	if image == nil || image.Data == "" {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", image.MIMEType, image.Data)
}

var (
	ErrMissingCredentials = errors.New("no AI provider credentials are configured")
	ErrGenerationFormat   = errors.New("generated content does not match the expected format")
	ErrGenerationFailed   = errors.New("content generation failed")
)

// HTTPStatusError is returned by providers for non-2xx responses
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.StatusCode, e.Body)
}

const (
	DefaultMaxRetryAttempts = 2
)
