// Package memory is the in-process RowWriter used by tests.
package memory

import (
	"context"
	"sync"

	"kyat/internal/export"
)

type Writer struct {
	mu   sync.Mutex
	rows []export.Row
}

func New() *Writer { return &Writer{} }

func (w *Writer) AppendRows(_ context.Context, rows []export.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, rows...)
	return nil
}

// Rows returns everything appended so far.
func (w *Writer) Rows() []export.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]export.Row, len(w.rows))
	copy(out, w.rows)
	return out
}
