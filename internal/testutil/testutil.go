// Package testutil provides shared test helpers: config files, in-memory
// ledgers and content stores, and child profile fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/profile"
)

// SetupTestConfig creates a minimal config file and its directories for testing.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dirs := []string{"cache", "prompts"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`server:
  port: 8080
database:
  driver: mysql
  host: localhost
  port: 3306
  database: genius_test
inference:
  provider: gemini
  api_key: test-api-key
local_cache:
  backend: file
  directory: %s
templates:
  prompts_directory: %s
`,
		filepath.Join(tmpDir, "cache"),
		filepath.Join(tmpDir, "prompts"),
	)

	configPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	return configPath
}

// DefaultCosts mirrors the seeded credit_costs table
func DefaultCosts() credit.CostTable {
	return credit.CostTable{
		credit.KindStoryPart:        2,
		credit.KindPlanStep:         3,
		credit.KindWorksheet:        3,
		credit.KindWorkbook:         5,
		credit.KindTopicSuggestions: 1,
		credit.KindAnswerGrading:    1,
	}
}

type Adjustment struct {
	OwnerID string
	Delta   int
	Kind    credit.Kind
}

// MemoryLedger is a credit.Ledger backed by maps
type MemoryLedger struct {
	mu          sync.Mutex
	CostTable   credit.CostTable
	Balances    map[string]int
	AdjustErr   error
	CostsCalls  int
	Adjustments []Adjustment
}

func NewMemoryLedger(balances map[string]int) *MemoryLedger {
	if balances == nil {
		balances = map[string]int{}
	}
	return &MemoryLedger{CostTable: DefaultCosts(), Balances: balances}
}

func (l *MemoryLedger) Costs(_ context.Context) (credit.CostTable, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.CostsCalls++
	costs := make(credit.CostTable, len(l.CostTable))
	for kind, cost := range l.CostTable {
		costs[kind] = cost
	}
	return costs, nil
}

func (l *MemoryLedger) Balance(_ context.Context, ownerID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Balances[ownerID], nil
}

// Adjust fails on a cancelled ctx like a database call would
func (l *MemoryLedger) Adjust(ctx context.Context, ownerID string, delta int, kind credit.Kind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.AdjustErr != nil {
		return l.AdjustErr
	}
	if l.Balances[ownerID]+delta < 0 {
		return credit.ErrDebitRejected
	}
	l.Balances[ownerID] += delta
	l.Adjustments = append(l.Adjustments, Adjustment{OwnerID: ownerID, Delta: delta, Kind: kind})
	return nil
}

func (l *MemoryLedger) BalanceOf(ownerID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Balances[ownerID]
}

// MemoryStore is a content.Store kept in memory
type MemoryStore struct {
	mu          sync.Mutex
	Records     map[string]content.Record
	UpsertErr   error
	UpsertCalls int
	nextID      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Records: map[string]content.Record{}}
}

// Upsert fails on a cancelled ctx like a database call would
func (s *MemoryStore) Upsert(ctx context.Context, draft content.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpsertCalls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.UpsertErr != nil {
		return "", s.UpsertErr
	}

	now := time.Now().UTC()
	if draft.ID == "" {
		s.nextID++
		draft.ID = fmt.Sprintf("content-%d", s.nextID)
	}
	record, ok := s.Records[draft.ID]
	if ok && (record.UserID != draft.OwnerID || record.Type != draft.Type) {
		return "", fmt.Errorf("content %s belongs to another owner", draft.ID)
	}
	if !ok {
		record = content.Record{ID: draft.ID, UserID: draft.OwnerID, Type: draft.Type, CreatedAt: now}
	}
	record.ProfileID = draft.ProfileID
	record.Title = draft.Title
	record.ContentData = slices.Clone(draft.Data)
	record.UpdatedAt = now
	s.Records[draft.ID] = record
	return draft.ID, nil
}

func (s *MemoryStore) Load(_ context.Context, id, ownerID string) (*content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[id]
	if !ok || record.UserID != ownerID {
		return nil, fmt.Errorf("%w: %s", content.ErrNotFound, id)
	}
	return &record, nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string, filter content.Filter) ([]content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []content.Record
	for _, record := range s.Records {
		if record.UserID != ownerID {
			continue
		}
		if filter.Type != "" && record.Type != filter.Type {
			continue
		}
		if filter.ProfileID != "" && record.ProfileID != filter.ProfileID {
			continue
		}
		records = append(records, record)
	}
	slices.SortFunc(records, func(a, b content.Record) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return records, nil
}

func (s *MemoryStore) Get(id string) (content.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[id]
	return record, ok
}

// ChildProfile returns a fixture profile owned by ownerID
func ChildProfile(ownerID string) *profile.ChildProfile {
	return &profile.ChildProfile{
		ID:            "child-1",
		OwnerID:       ownerID,
		Name:          "נועה",
		Age:           7,
		Gender:        "girl",
		Interests:     "חלל, חתולים",
		LearningGoals: "קריאה שוטפת",
	}
}
