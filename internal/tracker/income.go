package tracker

import (
	"context"
	"errors"
	"time"

	"kyat/internal/core"
	"kyat/internal/log"
	"kyat/internal/store"

	"sync"
)

// Income is the per-user income aggregate: it observes the singleton
// income document and owns the authoritative "current total income"
// value. The amount replaces on update, never sums.
type Income struct {
	st     store.Store
	logger *log.Logger
	notify func()

	bind binding

	mu      sync.Mutex
	uid     string
	total   int64
	updated time.Time
	err     error
}

func newIncome(st store.Store, logger *log.Logger, notify func()) *Income {
	return &Income{st: st, logger: logger.WithComponent(log.ComponentIncome), notify: notify}
}

// setUser tears down the previous subscription before establishing
// the next one; a nil user leaves the aggregate unbound at zero.
func (inc *Income) setUser(uid string) {
	gen := inc.bind.teardown()

	inc.mu.Lock()
	inc.uid = uid
	inc.total = 0
	inc.updated = time.Time{}
	inc.err = nil
	inc.mu.Unlock()
	inc.notify()

	if uid == "" {
		return
	}

	path := incomePath(uid)
	inc.bind.subscribe(gen, func() store.Unsubscribe {
		return inc.st.Subscribe(path,
			func(docs []store.Document) {
				if !inc.bind.observed(gen) {
					return
				}
				inc.apply(docs)
			},
			func(err error) {
				if !inc.bind.failed(gen) {
					return
				}
				inc.logger.Error("income listener failed", log.FieldUserID, uid, log.FieldError, err)
				inc.mu.Lock()
				inc.total = 0
				inc.updated = time.Time{}
				inc.err = &core.StoreError{Op: "observe income", Err: err}
				inc.mu.Unlock()
				inc.notify()
			})
	})
}

func (inc *Income) apply(docs []store.Document) {
	inc.mu.Lock()
	if len(docs) == 0 {
		inc.total = 0
		inc.updated = time.Time{}
	} else {
		d := docs[0]
		inc.total = d.Fields.Int64("amount")
		if t := d.Fields.Time("updatedAt"); !t.IsZero() {
			inc.updated = t
		} else if t := d.Fields.Time("createdAt"); !t.IsZero() {
			inc.updated = t
		} else {
			inc.updated = d.UpdatedAt
		}
	}
	inc.err = nil
	inc.mu.Unlock()
	inc.notify()
}

// Total returns the current observed income; 0 when absent.
func (inc *Income) Total() int64 {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	return inc.total
}

// LastUpdated returns when the income document last changed.
func (inc *Income) LastUpdated() time.Time {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	return inc.updated
}

// HasIncomeSet reports whether an income amount has been observed.
func (inc *Income) HasIncomeSet() bool {
	return inc.Total() > 0
}

// Err returns the listener error that reset this aggregate, if any.
func (inc *Income) Err() error {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	return inc.err
}

// State exposes the subscription lifecycle state.
func (inc *Income) State() BindState { return inc.bind.current() }

func (inc *Income) currentUID() (string, error) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.uid == "" {
		return "", core.ErrNotAuthenticated
	}
	return inc.uid, nil
}

// SetInitial creates or overwrites the income singleton with both
// timestamps set to now. Repeated calls simply overwrite.
func (inc *Income) SetInitial(ctx context.Context, amount int64) error {
	uid, err := inc.currentUID()
	if err != nil {
		return err
	}
	if err := core.ValidateIncomeAmount(amount); err != nil {
		return err
	}

	now := time.Now()
	fields := store.Fields{
		"amount":    amount,
		"createdAt": now,
		"updatedAt": now,
	}
	if err := inc.st.Set(ctx, incomePath(uid), fields, false); err != nil {
		return core.WrapStore("set income", err)
	}
	inc.logger.InfoContext(ctx, "initial income set", log.FieldUserID, uid, log.FieldAmount, amount)
	return nil
}

// Replace sets the income to a new amount and reports the delta
// against what was read just before the write. Read-then-write, not a
// transaction: concurrent replaces from other sessions can race.
func (inc *Income) Replace(ctx context.Context, amount int64) (core.IncomeChange, error) {
	uid, err := inc.currentUID()
	if err != nil {
		return core.IncomeChange{}, err
	}
	if err := core.ValidateIncomeAmount(amount); err != nil {
		return core.IncomeChange{}, err
	}

	current, err := inc.readAmount(ctx, uid)
	if err != nil {
		return core.IncomeChange{}, err
	}

	fields := store.Fields{
		"amount":    amount,
		"updatedAt": time.Now(),
	}
	if err := inc.st.Set(ctx, incomePath(uid), fields, true); err != nil {
		return core.IncomeChange{}, core.WrapStore("replace income", err)
	}

	change := core.IncomeChange{Old: current, New: amount, Difference: amount - current}
	inc.logger.InfoContext(ctx, "income replaced",
		log.FieldUserID, uid, "old", change.Old, "new", change.New, "difference", change.Difference)
	return change, nil
}

// AddDelta adds a positive amount on top of the current income,
// creating the singleton via SetInitial when absent.
func (inc *Income) AddDelta(ctx context.Context, amount int64) (int64, error) {
	uid, err := inc.currentUID()
	if err != nil {
		return 0, err
	}
	if err := core.ValidateIncomeDelta(amount); err != nil {
		return 0, err
	}

	doc, err := inc.st.Read(ctx, incomePath(uid))
	if errors.Is(err, store.ErrNotFound) {
		if err := inc.SetInitial(ctx, amount); err != nil {
			return 0, err
		}
		return amount, nil
	}
	if err != nil {
		return 0, core.WrapStore("read income", err)
	}

	total := doc.Fields.Int64("amount") + amount
	fields := store.Fields{
		"amount":    total,
		"updatedAt": time.Now(),
	}
	if err := inc.st.Update(ctx, incomePath(uid), fields); err != nil {
		return 0, core.WrapStore("add income", err)
	}
	inc.logger.InfoContext(ctx, "income increased", log.FieldUserID, uid, log.FieldAmount, amount, "total", total)
	return total, nil
}

func (inc *Income) readAmount(ctx context.Context, uid string) (int64, error) {
	doc, err := inc.st.Read(ctx, incomePath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, core.WrapStore("read income", err)
	}
	return doc.Fields.Int64("amount"), nil
}

func (inc *Income) close() { inc.bind.teardown() }
