package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/at-ishikawa/genius/internal/metrics"
)

// Generator implements Client on top of a Provider, adding credential
// resolution, retries, schema validation and metrics.
type Generator struct {
	provider         Provider
	keys             KeyResolver
	maxRetryAttempts uint
	retryDelay       time.Duration
}

func NewGenerator(provider Provider, keys KeyResolver, maxRetryAttempts uint) *Generator {
	return &Generator{
		provider:         provider,
		keys:             keys,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (g *Generator) GenerateStructured(ctx context.Context, req StructuredRequest, out any) error {
	if req.Schema == nil {
		return fmt.Errorf("no response schema for %s", req.Operation)
	}
	apiKey, err := g.keys.ResolveKey(ctx, req.OwnerID)
	if err != nil {
		return err
	}

	start := time.Now()
	attempt := 0
	var content string
	err = Retry(ctx, g.maxRetryAttempts, g.retryDelay, func() error {
		attempt++
		generated, err := g.provider.GenerateJSON(ctx, apiKey, req.Prompt, req.Schema)
		if err != nil {
			slog.Default().Debug("structured generation attempt failed",
				"provider", g.provider.Name(),
				"operation", req.Operation,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		if err := req.Schema.Validate([]byte(generated)); err != nil {
			slog.Default().Warn("generated content does not match the schema",
				"provider", g.provider.Name(),
				"operation", req.Operation,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		content = generated
		return nil
	})
	g.observe(req.Operation, start, err)
	if err != nil {
		return classify(err)
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: json.Unmarshal > %v", ErrGenerationFormat, err)
	}
	slog.Default().Debug("structured generation succeeded",
		"provider", g.provider.Name(),
		"operation", req.Operation,
		"attempts", attempt,
		"duration", time.Since(start),
	)
	return nil
}

func (g *Generator) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	apiKey, err := g.keys.ResolveKey(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	operation := req.Operation
	if operation == "" {
		operation = "image"
	}
	start := time.Now()
	var image *Image
	err = Retry(ctx, g.maxRetryAttempts, g.retryDelay, func() error {
		generated, err := g.provider.GenerateImage(ctx, apiKey, ImagePrompt(req.Prompt), req.Reference)
		if err != nil {
			return err
		}
		image = generated
		return nil
	})
	g.observe(operation, start, err)
	if err != nil {
		if errors.Is(classify(err), ErrMissingCredentials) {
			return nil, classify(err)
		}
		slog.Default().Warn("image generation failed, continuing without an image",
			"provider", g.provider.Name(),
			"operation", operation,
			"error", err,
		)
		return nil, nil
	}
	if image == nil || image.Data == "" {
		slog.Default().Warn("provider returned no image data",
			"provider", g.provider.Name(),
			"operation", operation,
		)
		return nil, nil
	}
	return image, nil
}

func (g *Generator) observe(operation Operation, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrGenerationFormat) {
			status = "format_error"
		}
	}
	metrics.AIRequestsTotal.WithLabelValues(g.provider.Name(), string(operation), status).Inc()
	metrics.AIRequestDuration.WithLabelValues(g.provider.Name(), string(operation)).Observe(time.Since(start).Seconds())
}

// classify maps a provider failure onto the public error kinds
func classify(err error) error {
	if errors.Is(err, ErrGenerationFormat) || errors.Is(err, ErrMissingCredentials) {
		return err
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) &&
		(statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: provider rejected the api key (%d)", ErrMissingCredentials, statusErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
}
