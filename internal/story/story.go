// Package story runs the interactive story state machine: every Advance
// call appends at most one AI part, optionally preceded by the child's own line.
package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/session"
)

type Author string

const (
	AuthorAI   Author = "ai"
	AuthorUser Author = "user"
)

type Part struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
	// Image is a data URI, empty when no illustration could be generated
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Style struct {
	ArtStyle        string `json:"art_style,omitempty"`
	Genre           string `json:"genre,omitempty"`
	Theme           string `json:"theme,omitempty"`
	Length          string `json:"length,omitempty"`
	Complexity      string `json:"complexity,omitempty"`
	CharacterCount  int    `json:"character_count,omitempty"`
	IncludeDialogue bool   `json:"include_dialogue"`
	Educational     bool   `json:"educational"`
}

type Story struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Style Style  `json:"style"`
	Parts []Part `json:"parts"`
}

var (
	ErrEmptyTitle = session.NewError("story title is empty", "יש לתת שם לסיפור לפני שמתחילים")
	ErrNotAStory  = errors.New("content is not a story")
)

// Session owns one story. Transitions are serialized; a concurrent Advance
// fails with session.ErrBusy. mu guards story against snapshot readers;
// only the transition holding guard writes it.
type Session struct {
	app   *session.Context
	guard session.Guard
	mu    sync.RWMutex
	story Story
	now   func() time.Time
}

func New(app *session.Context, title string, style Style) (*Session, error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	return &Session{
		app: app,
		story: Story{
			ID:    uuid.NewString(),
			Title: title,
			Style: style,
			Parts: []Part{},
		},
		now: time.Now,
	}, nil
}

// Resume rebuilds a session from a stored story record
func Resume(app *session.Context, record *content.Record) (*Session, error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	if record.Type != content.TypeStory {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAStory, record.ID, record.Type)
	}
	var story Story
	if err := json.Unmarshal(record.ContentData, &story); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w", record.ID, err)
	}
	story.ID = record.ID
	if story.Title == "" {
		story.Title = record.Title
	}
	if story.Parts == nil {
		story.Parts = []Part{}
	}
	return &Session{app: app, story: story, now: time.Now}, nil
}

// Story returns a snapshot of the story
func (s *Session) Story() Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.story
	snapshot.Parts = slices.Clone(s.story.Parts)
	return snapshot
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.story.ID
}

// Advance appends userText, when given, and the next AI part. On any failure
// before the AI part is committed the parts are left untouched, the user's
// line included. When only the debit fails, the new part is returned
// together with an error wrapping credit.ErrDebitFailed.
func (s *Session) Advance(ctx context.Context, userText string) (part Part, err error) {
	release, err := s.guard.Enter()
	if err != nil {
		return Part{}, err
	}
	defer release()
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("story", "advance", metrics.Outcome(err)).Inc()
	}()

	working := slices.Clone(s.story.Parts)
	if text := strings.TrimSpace(userText); text != "" {
		working = append(working, Part{Author: AuthorUser, Text: text, Timestamp: s.now()})
	}

	services := s.app.Services
	err = services.Gate.Run(ctx, s.app.OwnerID, credit.KindStoryPart, func(ctx context.Context) error {
		generated, err := s.generate(ctx, working)
		if err != nil {
			return err
		}
		part = generated
		s.mu.Lock()
		s.story.Parts = append(working, generated)
		s.mu.Unlock()
		return nil
	})
	if err != nil && !errors.Is(err, credit.ErrDebitFailed) {
		return Part{}, err
	}

	s.persist(ctx)
	return part, err
}

func (s *Session) generate(ctx context.Context, history []Part) (Part, error) {
	services := s.app.Services
	prompt, err := s.prompt(history)
	if err != nil {
		return Part{}, err
	}

	var response inference.StoryPartResponse
	if err := services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
		OwnerID:   s.app.OwnerID,
		Operation: inference.OperationStoryPart,
		Prompt:    prompt,
		Schema:    inference.StoryPartSchema(),
	}, &response); err != nil {
		return Part{}, err
	}
	if strings.TrimSpace(response.Text) == "" {
		return Part{}, fmt.Errorf("%w: story part has no text", inference.ErrGenerationFormat)
	}

	image, err := s.illustrate(ctx, response.ImagePrompt)
	if err != nil {
		return Part{}, err
	}
	return Part{
		Author:    AuthorAI,
		Text:      response.Text,
		Image:     image.DataURI(),
		Timestamp: s.now(),
	}, nil
}

func (s *Session) prompt(history []Part) (string, error) {
	data := assets.StoryPrompt{
		Title: s.story.Title,
		Child: s.app.Child(),
		Style: assets.StoryStyle{
			ArtStyle:        s.story.Style.ArtStyle,
			Genre:           s.story.Style.Genre,
			Theme:           s.story.Style.Theme,
			Length:          s.story.Style.Length,
			Complexity:      s.story.Style.Complexity,
			CharacterCount:  s.story.Style.CharacterCount,
			IncludeDialogue: s.story.Style.IncludeDialogue,
			Educational:     s.story.Style.Educational,
		},
	}
	prompts := s.app.Services.Prompts
	if len(history) == 0 {
		return prompts.StoryOpening(data)
	}
	for _, part := range history {
		data.History = append(data.History, assets.StoryLine{Speaker: string(part.Author), Text: part.Text})
	}
	return prompts.StoryContinuation(data)
}

// illustrate returns nil when no image could be produced
func (s *Session) illustrate(ctx context.Context, description string) (*inference.Image, error) {
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}
	reference := s.app.ReferenceImage(ctx)
	prompt, err := s.app.Services.Prompts.StoryImage(assets.StoryImagePrompt{
		Description:  description,
		ArtStyle:     s.story.Style.ArtStyle,
		ChildName:    s.app.Profile.Name,
		HasReference: reference != nil,
	})
	if err != nil {
		return nil, err
	}
	return s.app.Services.Generator.GenerateImage(ctx, inference.ImageRequest{
		OwnerID:   s.app.OwnerID,
		Operation: inference.OperationStoryImage,
		Prompt:    prompt,
		Reference: reference,
	})
}

func (s *Session) persist(ctx context.Context) {
	data, err := json.Marshal(s.story)
	if err != nil {
		slog.Default().Error("failed to encode story", "story_id", s.story.ID, "error", err)
		return
	}
	id := s.app.Persist(ctx, content.Draft{
		ID:    s.story.ID,
		Type:  content.TypeStory,
		Title: s.story.Title,
		Data:  data,
	})
	s.mu.Lock()
	s.story.ID = id
	s.mu.Unlock()
}
