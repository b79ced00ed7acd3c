package core

import "time"

// Amount thresholds, in whole kyats (MMK has no minor unit in practice).
const (
	MinIncome  int64 = 1000
	MaxIncome  int64 = 1_000_000_000
	MinExpense int64 = 100
)

// LowBalanceRatio is the fraction of total income under which the
// balance is flagged as low.
const LowBalanceRatio = 0.2

type (
	// EntryType discriminates records on the typed ledger. Entries on
	// the plain expense ledger carry no type.
	EntryType string

	// IncomeRecord is the per-user singleton income document. The amount
	// replaces on update; it is never summed and never deleted.
	IncomeRecord struct {
		Amount    int64
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Entry is a single ledger record. Immutable once created except
	// deletion. Pending marks the optimistic echo returned by an append
	// before the store-confirmed snapshot arrives.
	Entry struct {
		ID        string
		UserID    string
		Amount    int64
		Note      string
		Category  string
		PayMethod string
		Type      EntryType
		CreatedAt time.Time
		Pending   bool
	}

	// IncomeChange reports the result of replacing the income amount.
	IncomeChange struct {
		Old        int64
		New        int64
		Difference int64
	}
)

const (
	TypeExpense EntryType = "expense"
	TypeIncome  EntryType = "income"
)
