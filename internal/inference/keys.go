package inference

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// DBKeyResolver prefers the key stored in user_settings over the global default
type DBKeyResolver struct {
	db         *sqlx.DB
	defaultKey string
}

func NewDBKeyResolver(db *sqlx.DB, defaultKey string) *DBKeyResolver {
	return &DBKeyResolver{db: db, defaultKey: defaultKey}
}

func (r *DBKeyResolver) ResolveKey(ctx context.Context, ownerID string) (string, error) {
	if ownerID != "" {
		var key sql.NullString
		query := r.db.Rebind("SELECT ai_api_key FROM user_settings WHERE user_id = ?")
		err := r.db.GetContext(ctx, &key, query, ownerID)
		switch {
		case err == nil:
			if key.Valid && key.String != "" {
				return key.String, nil
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			slog.Default().Warn("failed to read user api key, falling back to the global key",
				"owner_id", ownerID,
				"error", err,
			)
		}
	}
	if r.defaultKey == "" {
		return "", ErrMissingCredentials
	}
	return r.defaultKey, nil
}

// StaticKey resolves the same key for every owner
type StaticKey string

func (key StaticKey) ResolveKey(_ context.Context, _ string) (string, error) {
	if key == "" {
		return "", ErrMissingCredentials
	}
	return string(key), nil
}
