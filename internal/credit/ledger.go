package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/genius/internal/database"
)

type DBLedger struct {
	db *sqlx.DB
}

func NewDBLedger(db *sqlx.DB) *DBLedger {
	return &DBLedger{db: db}
}

type costRow struct {
	Kind string `db:"kind"`
	Cost int    `db:"cost"`
}

func (l *DBLedger) Costs(ctx context.Context) (CostTable, error) {
	var rows []costRow
	if err := l.db.SelectContext(ctx, &rows, "SELECT kind, cost FROM credit_costs"); err != nil {
		return nil, fmt.Errorf("select credit costs: %w", err)
	}
	table := make(CostTable, len(rows))
	for _, row := range rows {
		table[Kind(row.Kind)] = row.Cost
	}
	return table, nil
}

func (l *DBLedger) Balance(ctx context.Context, ownerID string) (int, error) {
	var credits int
	query := l.db.Rebind("SELECT credits FROM credit_balances WHERE user_id = ?")
	if err := l.db.GetContext(ctx, &credits, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select credit balance: %w", err)
	}
	return credits, nil
}

func (l *DBLedger) Adjust(ctx context.Context, ownerID string, delta int, kind Kind) error {
	return database.RunInTx(ctx, l.db, func(ctx context.Context, tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE credit_balances SET credits = credits + ? WHERE user_id = ? AND credits + ? >= 0"),
			delta, ownerID, delta,
		)
		if err != nil {
			return fmt.Errorf("update credit balance: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update credit balance: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: owner %s, delta %d", ErrDebitRejected, ownerID, delta)
		}
		return recordTransaction(ctx, tx, ownerID, delta, kind)
	})
}

// Grant tops up a balance, creating it when the owner has none yet.
func (l *DBLedger) Grant(ctx context.Context, ownerID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	var upsert string
	switch l.db.DriverName() {
	case database.DriverPostgres:
		upsert = "INSERT INTO credit_balances (user_id, credits) VALUES ($1, $2) " +
			"ON CONFLICT (user_id) DO UPDATE SET credits = credit_balances.credits + EXCLUDED.credits"
	default:
		upsert = "INSERT INTO credit_balances (user_id, credits) VALUES (?, ?) " +
			"ON DUPLICATE KEY UPDATE credits = credits + VALUES(credits)"
	}

	var balance int
	err := database.RunInTx(ctx, l.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, upsert, ownerID, amount); err != nil {
			return fmt.Errorf("upsert credit balance: %w", err)
		}
		if err := recordTransaction(ctx, tx, ownerID, amount, KindGrant); err != nil {
			return err
		}
		return tx.GetContext(ctx, &balance, tx.Rebind("SELECT credits FROM credit_balances WHERE user_id = ?"), ownerID)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func recordTransaction(ctx context.Context, tx *sqlx.Tx, ownerID string, delta int, kind Kind) error {
	_, err := tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO credit_transactions (user_id, kind, delta, balance_after) "+
			"SELECT user_id, ?, ?, credits FROM credit_balances WHERE user_id = ?"),
		string(kind), delta, ownerID,
	)
	if err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}
