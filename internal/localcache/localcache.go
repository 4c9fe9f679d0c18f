// Package localcache is a best-effort, key-indexed mirror of generated content
// and profile images. It is never the system of record.
package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"
)

type Kind string

const (
	KindProfileImage Kind = "profile_image"
	KindContent      Kind = "content"
	KindPending      Kind = "pending"
)

// Entry is one cached row. ID is a random UUID assigned on Add.
type Entry struct {
	ID      string    `yaml:"id" json:"id"`
	Index   string    `yaml:"index" json:"index"`
	Kind    Kind      `yaml:"kind" json:"kind"`
	Data    string    `yaml:"data" json:"data"`
	Synced  bool      `yaml:"synced" json:"synced"`
	SavedAt time.Time `yaml:"saved_at" json:"saved_at"`
}

// Store supports equality lookups by index only
type Store interface {
	Add(ctx context.Context, entry Entry) (string, error)
	GetByIndex(ctx context.Context, index string) ([]Entry, error)
	DeleteByIndex(ctx context.Context, index string) error
}

type ProfileImage struct {
	ChildProfileID string `json:"child_profile_id"`
	// ImageData is base64 encoded
	ImageData string `json:"image_data"`
	ImageType string `json:"image_type"`
}

func ProfileImageIndex(childProfileID string) string {
	return "profile_image:" + childProfileID
}

func ContentIndex(ownerID, contentID string) string {
	return "content:" + ownerID + ":" + contentID
}

// PendingIndex lists the owner's content ids whose mirror never reached the remote store
func PendingIndex(ownerID string) string {
	return "pending:" + ownerID
}

// SaveProfileImage replaces any previous image of the child.
func SaveProfileImage(ctx context.Context, store Store, image ProfileImage) error {
	data, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}
	index := ProfileImageIndex(image.ChildProfileID)
	if err := store.DeleteByIndex(ctx, index); err != nil {
		return fmt.Errorf("store.DeleteByIndex(%s) > %w", index, err)
	}
	if _, err := store.Add(ctx, Entry{
		Index:  index,
		Kind:   KindProfileImage,
		Data:   string(data),
		Synced: true,
	}); err != nil {
		return fmt.Errorf("store.Add(%s) > %w", index, err)
	}
	return nil
}

// LoadProfileImage returns nil when the child has no cached image.
func LoadProfileImage(ctx context.Context, store Store, childProfileID string) (*ProfileImage, error) {
	entry, err := latest(ctx, store, ProfileImageIndex(childProfileID))
	if err != nil || entry == nil {
		return nil, err
	}
	var image ProfileImage
	if err := json.Unmarshal([]byte(entry.Data), &image); err != nil {
		return nil, fmt.Errorf("json.Unmarshal > %w", err)
	}
	return &image, nil
}

// MirrorContent keeps a single local copy of a content payload. synced
// records whether the remote write succeeded.
func MirrorContent(ctx context.Context, store Store, ownerID, contentID string, payload []byte, synced bool) error {
	index := ContentIndex(ownerID, contentID)
	if err := store.DeleteByIndex(ctx, index); err != nil {
		return fmt.Errorf("store.DeleteByIndex(%s) > %w", index, err)
	}
	if _, err := store.Add(ctx, Entry{
		Index:  index,
		Kind:   KindContent,
		Data:   string(payload),
		Synced: synced,
	}); err != nil {
		return fmt.Errorf("store.Add(%s) > %w", index, err)
	}
	if synced {
		return nil
	}

	pending, err := PendingContent(ctx, store, ownerID)
	if err != nil {
		return err
	}
	if slices.Contains(pending, contentID) {
		return nil
	}
	pendingIndex := PendingIndex(ownerID)
	if _, err := store.Add(ctx, Entry{
		Index: pendingIndex,
		Kind:  KindPending,
		Data:  contentID,
	}); err != nil {
		return fmt.Errorf("store.Add(%s) > %w", pendingIndex, err)
	}
	return nil
}

// PendingContent returns the owner's unsynced content ids, oldest first.
func PendingContent(ctx context.Context, store Store, ownerID string) ([]string, error) {
	index := PendingIndex(ownerID)
	entries, err := store.GetByIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("store.GetByIndex(%s) > %w", index, err)
	}
	sortEntries(entries)
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !slices.Contains(ids, entry.Data) {
			ids = append(ids, entry.Data)
		}
	}
	return ids, nil
}

// SetPendingContent replaces the owner's pending list
func SetPendingContent(ctx context.Context, store Store, ownerID string, contentIDs []string) error {
	index := PendingIndex(ownerID)
	if err := store.DeleteByIndex(ctx, index); err != nil {
		return fmt.Errorf("store.DeleteByIndex(%s) > %w", index, err)
	}
	for _, id := range contentIDs {
		if _, err := store.Add(ctx, Entry{Index: index, Kind: KindPending, Data: id}); err != nil {
			return fmt.Errorf("store.Add(%s) > %w", index, err)
		}
	}
	return nil
}

// LoadMirror returns the mirrored payload or nil.
func LoadMirror(ctx context.Context, store Store, ownerID, contentID string) (*Entry, error) {
	return latest(ctx, store, ContentIndex(ownerID, contentID))
}

func latest(ctx context.Context, store Store, index string) (*Entry, error) {
	entries, err := store.GetByIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("store.GetByIndex(%s) > %w", index, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	sortEntries(entries)
	return &entries[len(entries)-1], nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SavedAt.Before(entries[j].SavedAt)
	})
}

func expired(entry Entry, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(entry.SavedAt) > ttl
}
