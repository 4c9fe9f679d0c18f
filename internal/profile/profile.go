// Package profile reads child profiles and their reference photos.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ChildProfile is owned by a guardian and selected as the active profile
// for generation. The core never mutates it.
type ChildProfile struct {
	ID            string `db:"id" json:"id"`
	OwnerID       string `db:"owner_id" json:"owner_id"`
	Name          string `db:"name" json:"name"`
	Age           int    `db:"age" json:"age"`
	Gender        string `db:"gender" json:"gender"`
	Interests     string `db:"interests" json:"interests"`
	LearningGoals string `db:"learning_goals" json:"learning_goals"`
	PhotoURL      string `db:"photo_url" json:"photo_url"`
}

var ErrNotFound = errors.New("child profile not found")

type Repository interface {
	FindByID(ctx context.Context, ownerID, id string) (*ChildProfile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ChildProfile, error)
}

type DBRepository struct {
	db *sqlx.DB
}

func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

const selectProfiles = "SELECT id, owner_id, name, age, gender, " +
	"COALESCE(interests, '') AS interests, COALESCE(learning_goals, '') AS learning_goals, " +
	"COALESCE(photo_url, '') AS photo_url FROM child_profiles"

func (r *DBRepository) FindByID(ctx context.Context, ownerID, id string) (*ChildProfile, error) {
	var p ChildProfile
	err := r.db.GetContext(ctx, &p, r.db.Rebind(selectProfiles+" WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("select child profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *DBRepository) ListByOwner(ctx context.Context, ownerID string) ([]ChildProfile, error) {
	var profiles []ChildProfile
	if err := r.db.SelectContext(ctx, &profiles, r.db.Rebind(selectProfiles+" WHERE owner_id = ? ORDER BY name"), ownerID); err != nil {
		return nil, fmt.Errorf("select child profiles: %w", err)
	}
	return profiles, nil
}
