// Package tracker implements the reactive synchronization core: the
// income aggregate, the expense and transaction ledgers, and the
// derived-balance session that ties them to one authenticated user.
//
// Each component owns at most one live store subscription. Switching
// users tears the previous subscription down before the next one
// starts; subscription errors reset local state to empty/zero rather
// than retaining stale data, and are never retried automatically.
package tracker

import (
	"context"
	"math"
	"sync"

	"kyat/internal/auth"
	"kyat/internal/core"
	"kyat/internal/log"
	"kyat/internal/store"
)

// Session composes the income aggregate and both ledgers over a
// single store, bound to the provider's current user. Mutations
// validate against the session's balance snapshot, write to the
// store, and converge through the subscriptions — read-after-write
// eventually, not immediately.
type Session struct {
	Income       *Income
	Expenses     *Ledger
	Transactions *Ledger

	provider   auth.Provider
	logger     *log.Logger
	cancelAuth func()

	mu       sync.Mutex
	user     *auth.User
	watchers map[int]chan struct{}
	nextID   int

	closeOnce sync.Once
}

// NewSession wires the components and immediately binds them to the
// provider's current user.
func NewSession(st store.Store, provider auth.Provider, logger *log.Logger) *Session {
	s := &Session{
		provider: provider,
		logger:   logger.WithComponent(log.ComponentSession),
		watchers: make(map[int]chan struct{}),
	}
	s.Income = newIncome(st, logger, s.broadcast)
	s.Expenses = newLedger(st, logger, CollExpenses, false, s.broadcast)
	s.Transactions = newLedger(st, logger, CollTransactions, true, s.broadcast)

	s.cancelAuth = provider.OnChange(s.onUserChange)
	return s
}

func (s *Session) onUserChange(u *auth.User) {
	uid := ""
	if u != nil {
		uid = u.UID
	}
	s.logger.Info("user changed", log.FieldUserID, uid)

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	s.Income.setUser(uid)
	s.Expenses.setUser(uid)
	s.Transactions.setUser(uid)
	s.broadcast()
}

// User returns the bound user reference, nil when signed out.
func (s *Session) User() *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Balance derives income minus the expense ledger total.
func (s *Session) Balance() int64 {
	return core.Balance(s.Income.Total(), s.Expenses.Total())
}

// Status classifies the current balance against total income.
func (s *Session) Status() core.BalanceStatus {
	return core.Status(s.Balance(), s.Income.Total())
}

// ExpensePercentage reports spent income as a whole percentage,
// capped at 100.
func (s *Session) ExpensePercentage() int {
	income := s.Income.Total()
	if income == 0 {
		return 0
	}
	pct := int(math.Round(float64(s.Expenses.Total()) / float64(income) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// AddExpense appends to the expense ledger after an advisory check
// against the current balance snapshot.
func (s *Session) AddExpense(ctx context.Context, amount int64, note, category, payMethod string) (core.Entry, error) {
	draft := core.Entry{Amount: amount, Note: note, Category: category, PayMethod: payMethod}
	return s.Expenses.Append(ctx, draft, s.Balance())
}

// AddTransaction appends to the typed ledger; this surface only ever
// writes expense-typed records. The advisory check runs against the
// typed ledger's own total.
func (s *Session) AddTransaction(ctx context.Context, amount int64, note, category, payMethod string) (core.Entry, error) {
	draft := core.Entry{Amount: amount, Note: note, Category: category, PayMethod: payMethod, Type: core.TypeExpense}
	available := core.Balance(s.Income.Total(), s.Transactions.Total())
	return s.Transactions.Append(ctx, draft, available)
}

// Watch returns a coalesced change signal: the channel receives after
// any observed state change. Cancel is idempotent.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Session) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close detaches from the auth provider and tears down every
// subscription. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelAuth()
		s.Income.close()
		s.Expenses.close()
		s.Transactions.close()
		s.logger.Info("session closed")
	})
}
