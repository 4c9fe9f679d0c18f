// Package datasync pushes content that only reached the local mirror to the remote store.
package datasync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/localcache"
)

// SyncResult tracks counts for each sync outcome.
type SyncResult struct {
	Synced  int
	Skipped int
	Missing int
	Invalid int
	Failed  int
}

// SyncOptions controls sync behavior.
type SyncOptions struct {
	DryRun bool
}

// Syncer reads unsynced local mirrors and writes them to the remote store.
type Syncer struct {
	store  content.Store
	cache  localcache.Store
	writer io.Writer
}

// NewSyncer creates a new Syncer.
func NewSyncer(store content.Store, cache localcache.Store, writer io.Writer) *Syncer {
	return &Syncer{
		store:  store,
		cache:  cache,
		writer: writer,
	}
}

// SyncOwner uploads every pending mirror of the owner. Ids that failed to
// upload stay pending; a dry run leaves the pending list untouched.
func (s *Syncer) SyncOwner(ctx context.Context, ownerID string, opts SyncOptions) (*SyncResult, error) {
	pending, err := localcache.PendingContent(ctx, s.cache, ownerID)
	if err != nil {
		return nil, fmt.Errorf("localcache.PendingContent(%s) > %w", ownerID, err)
	}

	var result SyncResult
	remaining := make([]string, 0, len(pending))
	for _, id := range pending {
		keep, err := s.syncContent(ctx, ownerID, id, opts, &result)
		if err != nil {
			return nil, fmt.Errorf("syncContent(%s) > %w", id, err)
		}
		if keep {
			remaining = append(remaining, id)
		}
	}

	if opts.DryRun {
		return &result, nil
	}
	if err := localcache.SetPendingContent(ctx, s.cache, ownerID, remaining); err != nil {
		return nil, fmt.Errorf("localcache.SetPendingContent(%s) > %w", ownerID, err)
	}
	return &result, nil
}

// syncContent reports whether id must stay pending
func (s *Syncer) syncContent(ctx context.Context, ownerID, id string, opts SyncOptions, result *SyncResult) (bool, error) {
	entry, err := localcache.LoadMirror(ctx, s.cache, ownerID, id)
	if err != nil {
		return false, err
	}
	if entry == nil {
		fmt.Fprintf(s.writer, "  [MISSING]  %s\n", id)
		result.Missing++
		return false, nil
	}
	if entry.Synced {
		fmt.Fprintf(s.writer, "  [SKIP]  %s\n", id)
		result.Skipped++
		return false, nil
	}

	var record content.Record
	if err := json.Unmarshal([]byte(entry.Data), &record); err != nil || record.UserID != ownerID || !record.Type.Valid() {
		fmt.Fprintf(s.writer, "  [INVALID]  %s\n", id)
		result.Invalid++
		return false, nil
	}

	if opts.DryRun {
		fmt.Fprintf(s.writer, "  [SYNC]  %q (%s %s)\n", record.Title, record.Type, id)
		result.Synced++
		return true, nil
	}

	if _, err := s.store.Upsert(ctx, content.Draft{
		ID:        id,
		OwnerID:   ownerID,
		ProfileID: record.ProfileID,
		Type:      record.Type,
		Title:     record.Title,
		Data:      record.ContentData,
	}); err != nil {
		slog.Default().Warn("failed to sync content",
			"owner_id", ownerID,
			"content_id", id,
			"type", record.Type,
			"error", err,
		)
		fmt.Fprintf(s.writer, "  [FAIL]  %q (%s %s)\n", record.Title, record.Type, id)
		result.Failed++
		return true, nil
	}

	if err := localcache.MirrorContent(ctx, s.cache, ownerID, id, []byte(entry.Data), true); err != nil {
		return false, err
	}
	fmt.Fprintf(s.writer, "  [SYNC]  %q (%s %s)\n", record.Title, record.Type, id)
	result.Synced++
	return false, nil
}
