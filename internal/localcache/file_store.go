package localcache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileStore keeps one YAML file per index under rootDir
type FileStore struct {
	rootDir string
	ttl     time.Duration
	now     func() time.Time

	mu sync.Mutex
}

func NewFileStore(rootDir string, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", rootDir, err)
	}
	return &FileStore{
		rootDir: rootDir,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (store *FileStore) filePath(index string) string {
	return filepath.Join(store.rootDir, base64.RawURLEncoding.EncodeToString([]byte(index))+".yml")
}

func (store *FileStore) Add(_ context.Context, entry Entry) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entries, err := store.read(entry.Index)
	if err != nil {
		return "", err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = store.now()
	}
	entries = append(entries, entry)
	if err := store.write(entry.Index, entries); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (store *FileStore) GetByIndex(_ context.Context, index string) ([]Entry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entries, err := store.read(index)
	if err != nil {
		return nil, err
	}
	now := store.now()
	live := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if !expired(entry, store.ttl, now) {
			live = append(live, entry)
		}
	}
	sortEntries(live)
	return live, nil
}

func (store *FileStore) DeleteByIndex(_ context.Context, index string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.filePath(index)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove > %w", err)
	}
	return nil
}

func (store *FileStore) read(index string) ([]Entry, error) {
	contents, err := os.ReadFile(store.filePath(index))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("os.ReadFile > %w", err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal > %w", err)
	}
	return entries, nil
}

func (store *FileStore) write(index string, entries []Entry) error {
	file, err := os.Create(store.filePath(index))
	if err != nil {
		return fmt.Errorf("os.Create > %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("encoder.Encode > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoder.Close > %w", err)
	}
	return nil
}
