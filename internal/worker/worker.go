// Package worker is the background process logic: it turns relayed
// change events into local snapshot refreshes and runs the scheduled
// monthly export.
package worker

import (
	"context"
	"sync"
	"time"

	"kyat/internal/backend"
	"kyat/internal/export"
	"kyat/internal/log"
	"kyat/internal/relay"
)

type collState struct {
	last     time.Time
	trailing bool
}

type Worker struct {
	refresher backend.Refresher
	exporter  *export.Exporter
	logger    *log.Logger

	exportUser string
	debounce   time.Duration

	// Clock supplies the time for debouncing and export-month
	// selection; tests may pin it.
	Clock func() time.Time

	mu    sync.Mutex
	state map[string]*collState
}

func New(refresher backend.Refresher, exporter *export.Exporter, exportUser string, debounce time.Duration, logger *log.Logger) *Worker {
	return &Worker{
		refresher:  refresher,
		exporter:   exporter,
		logger:     logger.WithComponent(log.ComponentWorker),
		exportUser: exportUser,
		debounce:   debounce,
		Clock:      time.Now,
		state:      make(map[string]*collState),
	}
}

// HandleChange refreshes the collection named by a relayed event. A
// burst of events for the same collection within the debounce window
// triggers one immediate refresh plus one trailing refresh when the
// window closes, so the last commit of a burst is never left
// unapplied.
func (w *Worker) HandleChange(ctx context.Context, event *relay.ChangeEvent) error {
	if w.refresher == nil {
		return nil
	}

	now := w.Clock()
	w.mu.Lock()
	st, ok := w.state[event.Collection]
	if !ok {
		st = &collState{}
		w.state[event.Collection] = st
	}
	if elapsed := now.Sub(st.last); ok && elapsed < w.debounce {
		if !st.trailing {
			st.trailing = true
			time.AfterFunc(w.debounce-elapsed, func() { w.flushTrailing(event.Collection) })
		}
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "change event debounced",
			log.FieldCollection, event.Collection)
		return nil
	}
	st.last = now
	w.mu.Unlock()

	w.refresher.Refresh(ctx, event.Collection)
	w.logger.InfoContext(ctx, "collection refreshed",
		log.FieldCollection, event.Collection,
		log.FieldOperation, event.Op)
	return nil
}

// flushTrailing runs once per suppressed burst, after the window ends.
func (w *Worker) flushTrailing(coll string) {
	w.mu.Lock()
	st := w.state[coll]
	st.trailing = false
	st.last = w.Clock()
	w.mu.Unlock()

	w.refresher.Refresh(context.Background(), coll)
	w.logger.Info("collection refreshed", log.FieldCollection, coll, "trailing", true)
}

// RunMonthlyExport exports the previous calendar month for the
// configured user.
func (w *Worker) RunMonthlyExport(ctx context.Context) error {
	if w.exporter == nil || w.exportUser == "" {
		return nil
	}

	// Last day of the previous month; AddDate on the current date
	// overshoots at month ends.
	now := w.Clock()
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	rows, err := w.exporter.ExportMonth(ctx, w.exportUser, prev.Year(), prev.Month())
	if err != nil {
		w.logger.ErrorContext(ctx, "monthly export failed",
			log.FieldUserID, w.exportUser,
			log.FieldError, err)
		return err
	}

	w.logger.InfoContext(ctx, "monthly export completed",
		log.FieldUserID, w.exportUser,
		"year", prev.Year(), "month", int(prev.Month()), "rows", rows)
	return nil
}
