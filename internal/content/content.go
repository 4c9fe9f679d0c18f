// Package content persists stories, workbooks and learning plans as
// owner-scoped records.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Type string

const (
	TypeStory        Type = "story"
	TypeWorkbook     Type = "workbook"
	TypeLearningPlan Type = "learning_plan"
)

func (t Type) Valid() bool {
	switch t {
	case TypeStory, TypeWorkbook, TypeLearningPlan:
		return true
	}
	return false
}

type Record struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProfileID   string          `json:"profile_id,omitempty"`
	Type        Type            `json:"type"`
	Title       string          `json:"title"`
	ContentData json.RawMessage `json:"content_data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Draft is what a workflow hands over to be stored. An empty ID creates a new record.
type Draft struct {
	ID        string
	OwnerID   string
	ProfileID string
	Type      Type
	Title     string
	Data      json.RawMessage
}

type Filter struct {
	Type      Type
	ProfileID string
}

type Store interface {
	// Upsert updates the owner's record with draft.ID, creating it when absent.
	Upsert(ctx context.Context, draft Draft) (string, error)
	Load(ctx context.Context, id, ownerID string) (*Record, error)
	List(ctx context.Context, ownerID string, filter Filter) ([]Record, error)
}

var (
	ErrNotFound    = errors.New("content not found")
	ErrPersistence = errors.New("failed to save content")
)
