package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"kyat/internal/catalog"
	"kyat/internal/core"
	"kyat/internal/log"
	"kyat/internal/store"
)

// Ledger is an append/delete-only, user-scoped, time-ordered record
// collection kept live against the store. One implementation serves
// both the plain expense ledger and the typed transaction ledger; the
// typed variant stamps every record with a type discriminant.
type Ledger struct {
	st     store.Store
	logger *log.Logger
	coll   string
	typed  bool
	notify func()

	bind binding

	mu      sync.Mutex
	uid     string
	entries []core.Entry
	err     error
}

func newLedger(st store.Store, logger *log.Logger, coll string, typed bool, notify func()) *Ledger {
	return &Ledger{
		st:     st,
		logger: logger.WithComponent(log.ComponentLedger).With(log.FieldCollection, coll),
		coll:   coll,
		typed:  typed,
		notify: notify,
	}
}

// setUser tears down the previous subscription before the next one
// starts. A nil user yields an empty, immediately-settled ledger with
// no active subscription.
func (l *Ledger) setUser(uid string) {
	gen := l.bind.teardown()

	l.mu.Lock()
	l.uid = uid
	l.entries = nil
	l.err = nil
	l.mu.Unlock()
	l.notify()

	if uid == "" {
		return
	}

	coll := userColl(uid, l.coll)
	l.bind.subscribe(gen, func() store.Unsubscribe {
		return l.st.Subscribe(coll,
			func(docs []store.Document) {
				if !l.bind.observed(gen) {
					return
				}
				l.apply(docs)
			},
			func(err error) {
				if !l.bind.failed(gen) {
					return
				}
				l.logger.Error("ledger listener failed", log.FieldUserID, uid, log.FieldError, err)
				l.mu.Lock()
				l.entries = nil
				l.err = &core.StoreError{Op: "observe " + l.coll, Err: err}
				l.mu.Unlock()
				l.notify()
			})
	})
}

// apply re-sorts every snapshot by creation time descending; ties keep
// the store's insertion order.
func (l *Ledger) apply(docs []store.Document) {
	entries := make([]core.Entry, len(docs))
	for i, d := range docs {
		entries[i] = entryFromDoc(d)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	l.mu.Lock()
	l.entries = entries
	l.err = nil
	l.mu.Unlock()
	l.notify()
}

// Entries returns the observed records, newest first.
func (l *Ledger) Entries() []core.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Total is the sum over all currently observed records.
func (l *Ledger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, e := range l.entries {
		sum += e.Amount
	}
	return sum
}

// Count returns the number of observed records.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Err returns the listener error that reset this ledger, if any.
func (l *Ledger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// State exposes the subscription lifecycle state.
func (l *Ledger) State() BindState { return l.bind.current() }

// Append validates the draft against the caller's balance snapshot
// and writes it with server-assigned timestamp and user scoping. The
// returned entry is an optimistic echo marked Pending; the committed
// record arrives through the subscription. The balance check is
// advisory: two sessions can pass it concurrently and jointly
// overdraw.
func (l *Ledger) Append(ctx context.Context, draft core.Entry, available int64) (core.Entry, error) {
	l.mu.Lock()
	uid := l.uid
	l.mu.Unlock()
	if uid == "" {
		return core.Entry{}, core.ErrNotAuthenticated
	}

	if err := core.ValidateExpenseAmount(draft.Amount, available); err != nil {
		return core.Entry{}, err
	}

	draft.UserID = uid
	draft.Category = catalog.NormalizeCategory(draft.Category)
	draft.PayMethod = catalog.NormalizePayMethod(draft.PayMethod)
	if l.typed && draft.Type == "" {
		draft.Type = core.TypeExpense
	}

	fields := store.Fields{
		"amount":    draft.Amount,
		"note":      draft.Note,
		"category":  draft.Category,
		"payMethod": draft.PayMethod,
		"userId":    uid,
	}
	if l.typed {
		fields["type"] = string(draft.Type)
	}

	id, err := l.st.Create(ctx, userColl(uid, l.coll), fields)
	if err != nil {
		return core.Entry{}, core.WrapStore("append "+l.coll, err)
	}

	l.logger.InfoContext(ctx, "entry appended",
		log.FieldUserID, uid, log.FieldDocID, id, log.FieldAmount, draft.Amount,
		"category", draft.Category)

	draft.ID = id
	draft.CreatedAt = time.Now()
	draft.Pending = true
	return draft, nil
}

// Remove deletes a record. The record disappears from Entries once
// the next change notification arrives, not instantaneously.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	uid := l.uid
	l.mu.Unlock()
	if uid == "" {
		return core.ErrNotAuthenticated
	}

	if err := l.st.Delete(ctx, userColl(uid, l.coll)+"/"+id); err != nil {
		return core.WrapStore("delete "+l.coll, err)
	}
	l.logger.InfoContext(ctx, "entry removed", log.FieldUserID, uid, log.FieldDocID, id)
	return nil
}

func (l *Ledger) close() { l.bind.teardown() }

func entryFromDoc(d store.Document) core.Entry {
	createdAt := d.CreatedAt
	if t := d.Fields.Time("createdAt"); !t.IsZero() {
		createdAt = t
	}
	return core.Entry{
		ID:        d.ID,
		UserID:    d.Fields.String("userId"),
		Amount:    d.Fields.Int64("amount"),
		Note:      d.Fields.String("note"),
		Category:  d.Fields.String("category"),
		PayMethod: d.Fields.String("payMethod"),
		Type:      core.EntryType(d.Fields.String("type")),
		CreatedAt: createdAt,
	}
}
