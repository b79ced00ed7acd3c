// Package export turns a user's stored ledger into spreadsheet rows.
// The worker runs it on a schedule; the Google adapter lives in the
// google subpackage, with an in-memory fake in memory for tests.
package export

import (
	"context"
	"time"
)

// Row is one exported ledger entry.
type Row struct {
	Date      time.Time
	Kind      string
	Amount    int64
	Category  string
	PayMethod string
	Note      string
}

// RowWriter is the outbound port for spreadsheet adapters.
type RowWriter interface {
	AppendRows(ctx context.Context, rows []Row) error
}
