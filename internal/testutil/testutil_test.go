package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/genius/internal/config"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir)

	want := filepath.Join(tmpDir, "config.yml")
	assert.Equal(t, want, got)

	for _, d := range []string{"cache", "prompts"} {
		info, err := os.Stat(filepath.Join(tmpDir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "test-api-key", cfg.Inference.APIKey)
	assert.Equal(t, filepath.Join(tmpDir, "prompts"), cfg.Templates.PromptsDirectory)
}

func TestMemoryLedger_Adjust(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(map[string]int{"user-1": 3})

	require.NoError(t, ledger.Adjust(ctx, "user-1", -2, credit.KindStoryPart))
	assert.Equal(t, 1, ledger.BalanceOf("user-1"))

	err := ledger.Adjust(ctx, "user-1", -2, credit.KindStoryPart)
	assert.ErrorIs(t, err, credit.ErrDebitRejected)
	assert.Equal(t, 1, ledger.BalanceOf("user-1"))
	assert.Len(t, ledger.Adjustments, 1)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Upsert(ctx, content.Draft{OwnerID: "user-1", Type: content.TypeStory, Title: "first", Data: []byte(`{}`)})
	require.NoError(t, err)

	_, err = store.Upsert(ctx, content.Draft{ID: id, OwnerID: "user-1", Type: content.TypeStory, Title: "second", Data: []byte(`{}`)})
	require.NoError(t, err)

	record, err := store.Load(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "second", record.Title)

	_, err = store.Load(ctx, id, "user-2")
	assert.ErrorIs(t, err, content.ErrNotFound)

	records, err := store.List(ctx, "user-1", content.Filter{Type: content.TypeWorkbook})
	require.NoError(t, err)
	assert.Empty(t, records)
}
