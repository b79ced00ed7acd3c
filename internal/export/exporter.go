package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kyat/internal/catalog"
	"kyat/internal/log"
	"kyat/internal/store"
	"kyat/internal/tracker"
)

// Exporter reads a user's ledgers from the store and appends them to a
// spreadsheet through the RowWriter port.
type Exporter struct {
	st     store.Store
	writer RowWriter
	logger *log.Logger
}

func New(st store.Store, writer RowWriter, logger *log.Logger) *Exporter {
	return &Exporter{st: st, writer: writer, logger: logger.WithComponent(log.ComponentExport)}
}

// ExportMonth appends every entry the user committed in the given month
// and returns how many rows were written. An empty month writes nothing.
func (e *Exporter) ExportMonth(ctx context.Context, uid string, year int, month time.Month) (int, error) {
	var rows []Row
	for _, coll := range []string{tracker.CollExpenses, tracker.CollTransactions} {
		docs, err := e.st.List(ctx, "users/"+uid+"/"+coll)
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", coll, err)
		}
		for _, doc := range docs {
			at := doc.Fields.Time("createdAt")
			if at.IsZero() {
				at = doc.CreatedAt
			}
			if at.Year() != year || at.Month() != month {
				continue
			}
			kind := doc.Fields.String("type")
			if kind == "" {
				kind = "expense"
			}
			rows = append(rows, Row{
				Date:      at,
				Kind:      kind,
				Amount:    doc.Fields.Int64("amount"),
				Category:  catalog.CategoryByID(doc.Fields.String("category")).Name,
				PayMethod: catalog.PaymentMethodByID(doc.Fields.String("payMethod")).Name,
				Note:      doc.Fields.String("note"),
			})
		}
	}

	if len(rows) == 0 {
		e.logger.InfoContext(ctx, "nothing to export",
			log.FieldUserID, uid, "year", year, "month", int(month))
		return 0, nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	if err := e.writer.AppendRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("append rows: %w", err)
	}

	e.logger.InfoContext(ctx, "month exported",
		log.FieldUserID, uid, "year", year, "month", int(month), "rows", len(rows))
	return len(rows), nil
}
