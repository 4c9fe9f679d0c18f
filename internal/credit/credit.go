// Package credit reads and adjusts the guardian's credit balance and gates
// every paid generative operation.
package credit

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindStoryPart        Kind = "story_part"
	KindPlanStep         Kind = "plan_step"
	KindWorksheet        Kind = "worksheet"
	KindWorkbook         Kind = "workbook"
	KindTopicSuggestions Kind = "topic_suggestions"
	KindAnswerGrading    Kind = "answer_grading"

	// KindGrant marks operator top-ups in the transaction log
	KindGrant Kind = "grant"
)

// CostTable maps an operation kind to its price in credits
type CostTable map[Kind]int

func (table CostTable) Cost(kind Kind) (int, error) {
	cost, ok := table[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return cost, nil
}

// Ledger is the authoritative store of balances and costs
type Ledger interface {
	// Costs always reads the current table
	Costs(ctx context.Context) (CostTable, error)
	Balance(ctx context.Context, ownerID string) (int, error)
	// Adjust applies delta atomically and fails with ErrDebitRejected
	// when the balance would become negative.
	Adjust(ctx context.Context, ownerID string, delta int, kind Kind) error
}

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDebitRejected       = errors.New("credit adjustment rejected")
	ErrDebitFailed         = errors.New("credit debit failed after content was generated")
	ErrUnknownKind         = errors.New("unknown credit kind")
)
