package credit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/metrics"
	gtestutil "github.com/at-ishikawa/genius/internal/testutil"
)

func TestGate_Run(t *testing.T) {
	errGeneration := errors.New("generation failed")

	tests := []struct {
		name        string
		balance     int
		costs       credit.CostTable
		adjustErr   error
		fnErr       error
		wantErr     error
		wantCalled  bool
		wantBalance int
	}{
		{
			name:        "debits after success",
			balance:     10,
			wantCalled:  true,
			wantBalance: 8,
		},
		{
			name:        "insufficient balance skips generation",
			balance:     1,
			wantErr:     credit.ErrInsufficientCredits,
			wantBalance: 1,
		},
		{
			name:        "exact balance is enough",
			balance:     2,
			wantCalled:  true,
			wantBalance: 0,
		},
		{
			name:        "failed generation is free",
			balance:     10,
			fnErr:       errGeneration,
			wantErr:     errGeneration,
			wantCalled:  true,
			wantBalance: 10,
		},
		{
			name:        "debit failure keeps the content",
			balance:     10,
			adjustErr:   errors.New("deadlock"),
			wantErr:     credit.ErrDebitFailed,
			wantCalled:  true,
			wantBalance: 10,
		},
		{
			name:        "free operation is not debited",
			balance:     0,
			costs:       credit.CostTable{credit.KindStoryPart: 0},
			wantCalled:  true,
			wantBalance: 0,
		},
		{
			name:        "unknown kind",
			balance:     10,
			costs:       credit.CostTable{},
			wantErr:     credit.ErrUnknownKind,
			wantBalance: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := gtestutil.NewMemoryLedger(map[string]int{"user-1": tt.balance})
			ledger.AdjustErr = tt.adjustErr
			if tt.costs != nil {
				ledger.CostTable = tt.costs
			}
			gate := credit.NewGate(ledger)

			called := false
			err := gate.Run(context.Background(), "user-1", credit.KindStoryPart, func(ctx context.Context) error {
				called = true
				return tt.fnErr
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantBalance, ledger.BalanceOf("user-1"))
			assert.Equal(t, 1, ledger.CostsCalls)
		})
	}
}

func TestGate_Run_DebitsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ledger := gtestutil.NewMemoryLedger(map[string]int{"user-1": 10})
	gate := credit.NewGate(ledger)

	err := gate.Run(ctx, "user-1", credit.KindStoryPart, func(ctx context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 8, ledger.BalanceOf("user-1"))
	require.Len(t, ledger.Adjustments, 1)
	assert.Equal(t, -2, ledger.Adjustments[0].Delta)
}

func TestGate_Run_RefreshesCosts(t *testing.T) {
	ctx := context.Background()
	ledger := gtestutil.NewMemoryLedger(map[string]int{"user-1": 10})
	gate := credit.NewGate(ledger)
	noop := func(context.Context) error { return nil }

	require.NoError(t, gate.Run(ctx, "user-1", credit.KindStoryPart, noop))
	ledger.CostTable[credit.KindStoryPart] = 5
	require.NoError(t, gate.Run(ctx, "user-1", credit.KindStoryPart, noop))

	assert.Equal(t, 3, ledger.BalanceOf("user-1"))
	assert.Equal(t, 2, ledger.CostsCalls)
}

func TestGate_Run_Metrics(t *testing.T) {
	ctx := context.Background()
	ledger := gtestutil.NewMemoryLedger(map[string]int{"user-1": 5})
	gate := credit.NewGate(ledger)
	noop := func(context.Context) error { return nil }

	debits := testutil.ToFloat64(metrics.CreditDebitsTotal.WithLabelValues(string(credit.KindWorkbook)))
	insufficient := testutil.ToFloat64(metrics.InsufficientCreditsTotal.WithLabelValues(string(credit.KindWorkbook)))

	require.NoError(t, gate.Run(ctx, "user-1", credit.KindWorkbook, noop))
	assert.ErrorIs(t, gate.Run(ctx, "user-1", credit.KindWorkbook, noop), credit.ErrInsufficientCredits)

	assert.Equal(t, debits+5, testutil.ToFloat64(metrics.CreditDebitsTotal.WithLabelValues(string(credit.KindWorkbook))))
	assert.Equal(t, insufficient+1, testutil.ToFloat64(metrics.InsufficientCreditsTotal.WithLabelValues(string(credit.KindWorkbook))))
}
