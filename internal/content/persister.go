package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/genius/internal/localcache"
	"github.com/at-ishikawa/genius/internal/metrics"
)

// Persister writes to the remote store and mirrors every payload locally.
// The local mirror is only read back while it has never been synced.
type Persister struct {
	store Store
	cache localcache.Store
	now   func() time.Time
}

func NewPersister(store Store, cache localcache.Store) *Persister {
	return &Persister{store: store, cache: cache, now: time.Now}
}

// Save returns the record id even when the remote write failed; that
// failure is reported wrapped in ErrPersistence.
func (p *Persister) Save(ctx context.Context, draft Draft) (string, error) {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}

	id, remoteErr := p.store.Upsert(ctx, draft)
	if remoteErr != nil {
		id = draft.ID
		metrics.PersistenceFailuresTotal.WithLabelValues(string(draft.Type)).Inc()
	}

	if p.cache != nil {
		now := p.now().UTC()
		mirror, err := json.Marshal(Record{
			ID:          id,
			UserID:      draft.OwnerID,
			ProfileID:   draft.ProfileID,
			Type:        draft.Type,
			Title:       draft.Title,
			ContentData: draft.Data,
			UpdatedAt:   now,
		})
		if err == nil {
			err = localcache.MirrorContent(ctx, p.cache, draft.OwnerID, id, mirror, remoteErr == nil)
		}
		if err != nil {
			slog.Default().Warn("failed to mirror content locally",
				"owner_id", draft.OwnerID,
				"content_id", id,
				"type", draft.Type,
				"error", err,
			)
		}
	}

	if remoteErr != nil {
		return id, fmt.Errorf("%w: %w", ErrPersistence, remoteErr)
	}
	return id, nil
}

// Load prefers the remote record and falls back to a local copy that never reached it.
func (p *Persister) Load(ctx context.Context, id, ownerID string) (*Record, error) {
	record, remoteErr := p.store.Load(ctx, id, ownerID)
	if remoteErr == nil {
		return record, nil
	}
	if p.cache == nil {
		return nil, remoteErr
	}

	entry, err := localcache.LoadMirror(ctx, p.cache, ownerID, id)
	if err != nil {
		slog.Default().Warn("failed to read local content mirror",
			"owner_id", ownerID,
			"content_id", id,
			"error", err,
		)
		return nil, remoteErr
	}
	if entry == nil || entry.Synced {
		return nil, remoteErr
	}

	var local Record
	if err := json.Unmarshal([]byte(entry.Data), &local); err != nil {
		return nil, remoteErr
	}
	if local.UserID != ownerID {
		return nil, remoteErr
	}
	if !errors.Is(remoteErr, ErrNotFound) {
		slog.Default().Warn("remote content unavailable, using unsynced local copy",
			"owner_id", ownerID,
			"content_id", id,
			"error", remoteErr,
		)
	}
	return &local, nil
}

func (p *Persister) List(ctx context.Context, ownerID string, filter Filter) ([]Record, error) {
	return p.store.List(ctx, ownerID, filter)
}
