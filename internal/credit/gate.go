package credit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/genius/internal/metrics"
)

// Gate wraps paid operations: costs are refreshed and the balance checked
// before fn runs, and the cost is debited only after fn succeeded.
type Gate struct {
	ledger Ledger
}

func NewGate(ledger Ledger) *Gate {
	return &Gate{ledger: ledger}
}

// Run executes fn when ownerID can afford kind. fn should generate the
// content and commit it in memory. When the debit fails afterwards the
// committed content stays and the returned error wraps ErrDebitFailed.
// Once fn succeeded the debit ignores cancellation of ctx.
func (g *Gate) Run(ctx context.Context, ownerID string, kind Kind, fn func(ctx context.Context) error) error {
	costs, err := g.ledger.Costs(ctx)
	if err != nil {
		return fmt.Errorf("ledger.Costs > %w", err)
	}
	cost, err := costs.Cost(kind)
	if err != nil {
		return err
	}
	balance, err := g.ledger.Balance(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("ledger.Balance > %w", err)
	}
	if balance < cost {
		metrics.InsufficientCreditsTotal.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("%w: %s costs %d, balance is %d", ErrInsufficientCredits, kind, cost, balance)
	}

	if err := fn(ctx); err != nil {
		return err
	}
	if cost == 0 {
		return nil
	}

	if err := g.ledger.Adjust(context.WithoutCancel(ctx), ownerID, -cost, kind); err != nil {
		slog.Default().Error("credit debit failed after content was committed",
			"owner_id", ownerID,
			"kind", kind,
			"cost", cost,
			"error", err,
		)
		metrics.CreditDebitFailuresTotal.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("%w: %w", ErrDebitFailed, err)
	}
	metrics.CreditDebitsTotal.WithLabelValues(string(kind)).Add(float64(cost))
	return nil
}

// Costs exposes the current cost table
func (g *Gate) Costs(ctx context.Context) (CostTable, error) {
	return g.ledger.Costs(ctx)
}

func (g *Gate) Balance(ctx context.Context, ownerID string) (int, error) {
	return g.ledger.Balance(ctx, ownerID)
}
