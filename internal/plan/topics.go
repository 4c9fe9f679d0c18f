package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/session"
)

const maxTopicSuggestions = 6

type TopicSuggestion struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// SuggestTopics proposes plan topics within subject for the active child
func SuggestTopics(ctx context.Context, app *session.Context, subject string) (topics []TopicSuggestion, err error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("plan", "suggest_topics", metrics.Outcome(err)).Inc()
	}()

	err = app.Services.Gate.Run(ctx, app.OwnerID, credit.KindTopicSuggestions, func(ctx context.Context) error {
		prompt, err := app.Services.Prompts.TopicSuggestions(assets.TopicSuggestionsPrompt{
			Child:   app.Child(),
			Subject: subject,
		})
		if err != nil {
			return err
		}
		var response inference.TopicSuggestionsResponse
		if err := app.Services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
			OwnerID:   app.OwnerID,
			Operation: inference.OperationTopicSuggestions,
			Prompt:    prompt,
			Schema:    inference.TopicSuggestionsSchema(),
		}, &response); err != nil {
			return err
		}

		for _, suggestion := range response.Topics {
			if strings.TrimSpace(suggestion.Topic) == "" {
				continue
			}
			topics = append(topics, TopicSuggestion{Topic: suggestion.Topic, Description: suggestion.Description})
			if len(topics) == maxTopicSuggestions {
				break
			}
		}
		if len(topics) == 0 {
			return fmt.Errorf("%w: no topics were suggested", inference.ErrGenerationFormat)
		}
		return nil
	})
	return topics, err
}
