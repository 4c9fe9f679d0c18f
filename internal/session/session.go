// Package session carries the application state a content workflow runs in:
// the guardian, the active child profile, and the shared services.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/profile"
)

type ContentSaver interface {
	Save(ctx context.Context, draft content.Draft) (string, error)
}

type ReferenceLoader interface {
	Load(ctx context.Context, p *profile.ChildProfile) *inference.Image
}

type Services struct {
	Generator  inference.Client
	Gate       *credit.Gate
	Content    ContentSaver
	Prompts    *assets.Prompts
	References ReferenceLoader
	// ChargeGrading makes answer grading a paid operation
	ChargeGrading bool
}

// Context is passed to every state machine in place of global state
type Context struct {
	OwnerID  string
	Profile  *profile.ChildProfile
	Services *Services
}

func New(ownerID string, p *profile.ChildProfile, services *Services) (*Context, error) {
	if ownerID == "" || p == nil {
		return nil, ErrNoActiveProfile
	}
	return &Context{OwnerID: ownerID, Profile: p, Services: services}, nil
}

func (c *Context) Child() assets.Child {
	return assets.Child{
		Name:          c.Profile.Name,
		Age:           c.Profile.Age,
		Gender:        c.Profile.Gender,
		Interests:     c.Profile.Interests,
		LearningGoals: c.Profile.LearningGoals,
	}
}

// ReferenceImage returns the active child's photo, or nil
func (c *Context) ReferenceImage(ctx context.Context) *inference.Image {
	if c.Services.References == nil {
		return nil
	}
	return c.Services.References.Load(ctx, c.Profile)
}

// Persist saves the draft and returns its id. Remote failures are logged
// and never undo what the caller has already committed, so the save is not
// cut short when ctx is cancelled.
func (c *Context) Persist(ctx context.Context, draft content.Draft) string {
	ctx = context.WithoutCancel(ctx)
	draft.OwnerID = c.OwnerID
	draft.ProfileID = c.Profile.ID
	id, err := c.Services.Content.Save(ctx, draft)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, content.ErrPersistence) {
			level = slog.LevelWarn
		}
		slog.Default().Log(ctx, level, "failed to persist content",
			"owner_id", c.OwnerID,
			"content_id", id,
			"type", draft.Type,
			"error", err,
		)
	}
	return id
}

// Guard serializes the transitions of one entity
type Guard struct {
	mu sync.Mutex
}

// Enter fails with ErrBusy while another transition is in flight.
func (g *Guard) Enter() (release func(), err error) {
	if !g.mu.TryLock() {
		return nil, ErrBusy
	}
	return g.mu.Unlock, nil
}
