package tracker

import (
	"context"
	"errors"
	"testing"

	"kyat/internal/catalog"
	"kyat/internal/core"
)

func TestAppendExpenseRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 10000); err != nil {
		t.Fatalf("set income: %v", err)
	}

	older, err := f.session.AddExpense(ctx, 500, "bus fare", "transport", "cash")
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	echo, err := f.session.AddExpense(ctx, 1500, "dinner", "food", "kbz_pay")
	if err != nil {
		t.Fatalf("second append: %v", err)
	}

	if !echo.Pending {
		t.Fatal("expected optimistic echo to be pending")
	}
	if echo.ID == "" || echo.UserID != "u1" {
		t.Fatalf("unexpected echo identity: %+v", echo)
	}

	entries := f.session.Expenses.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first: the later append precedes previously-existing records.
	got := entries[0]
	if got.ID != echo.ID || got.Amount != 1500 || got.Note != "dinner" ||
		got.Category != "food" || got.PayMethod != "kbz_pay" {
		t.Fatalf("unexpected head entry: %+v", got)
	}
	if got.Pending {
		t.Fatal("committed entry must not be pending")
	}
	if entries[1].ID != older.ID {
		t.Fatalf("expected older entry second, got %+v", entries[1])
	}
	if !entries[0].CreatedAt.After(entries[1].CreatedAt) {
		t.Fatal("expected descending createdAt order")
	}

	if got := f.session.Expenses.Total(); got != 2000 {
		t.Fatalf("expected total 2000, got %d", got)
	}
	if got := f.session.Balance(); got != 8000 {
		t.Fatalf("expected balance 8000, got %d", got)
	}
}

func TestAppendValidation(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}

	var ve *core.ValidationError
	if _, err := f.session.AddExpense(ctx, 0, "", "", ""); !errors.As(err, &ve) {
		t.Fatalf("zero amount expected ValidationError, got %v", err)
	}
	if _, err := f.session.AddExpense(ctx, 99, "", "", ""); !errors.As(err, &ve) {
		t.Fatalf("below minimum expected ValidationError, got %v", err)
	}
	if f.session.Expenses.Count() != 0 {
		t.Fatal("rejected appends must not write")
	}
}

func TestAppendWithoutIncome(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")

	// Balance is 0: any positive expense is rejected.
	_, err := f.session.AddExpense(context.Background(), 100, "", "", "")
	var ibe *core.InsufficientBalanceError
	if !errors.As(err, &ibe) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
}

func TestAppendRequiresUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.session.AddExpense(ctx, 500, "", "", ""); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := f.session.Expenses.Remove(ctx, "x"); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAppendDefaultsCatalogKeys(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}
	echo, err := f.session.AddExpense(ctx, 500, "", "", "")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if echo.Category != "other" {
		t.Fatalf("missing category expected other, got %q", echo.Category)
	}
	if echo.PayMethod != "cash" {
		t.Fatalf("missing pay method expected cash, got %q", echo.PayMethod)
	}

	entries := f.session.Expenses.Entries()
	if entries[0].Category != "other" || entries[0].PayMethod != "cash" {
		t.Fatalf("stored entry not normalized: %+v", entries[0])
	}
}

func TestAppendKeepsUnknownCatalogIDs(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}

	// Unknown ids are stored verbatim for both fields; the catalog
	// resolves them to the "other" entry at display time.
	echo, err := f.session.AddExpense(ctx, 500, "", "groceries", "bitcoin")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if echo.Category != "groceries" || echo.PayMethod != "bitcoin" {
		t.Fatalf("unknown ids rewritten at write: %+v", echo)
	}

	entries := f.session.Expenses.Entries()
	if entries[0].Category != "groceries" || entries[0].PayMethod != "bitcoin" {
		t.Fatalf("stored entry rewritten: %+v", entries[0])
	}
	if got := catalog.CategoryByID(entries[0].Category); got.ID != "other" {
		t.Fatalf("display resolution expected other, got %+v", got)
	}
	if got := catalog.PaymentMethodByID(entries[0].PayMethod); got.ID != "other" {
		t.Fatalf("display resolution expected other, got %+v", got)
	}
}

func TestRemoveExpense(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}
	echo, err := f.session.AddExpense(ctx, 500, "", "food", "cash")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := f.session.Expenses.Remove(ctx, echo.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.session.Expenses.Count() != 0 {
		t.Fatal("expected entry to disappear after the change notification")
	}
	if got := f.session.Balance(); got != 5000 {
		t.Fatalf("expected balance restored to 5000, got %d", got)
	}
}

func TestSequentialAppendsBalanceArithmetic(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	const income = 20000
	if err := f.session.Income.SetInitial(ctx, income); err != nil {
		t.Fatalf("set income: %v", err)
	}

	amounts := []int64{1000, 2500, 400, 7000, 100}
	var sum int64
	for _, amount := range amounts {
		if _, err := f.session.AddExpense(ctx, amount, "", "", ""); err != nil {
			t.Fatalf("append %d: %v", amount, err)
		}
		sum += amount
	}

	if got := f.session.Balance(); got != income-sum {
		t.Fatalf("expected final balance %d, got %d", income-sum, got)
	}
}

func TestTransactionLedgerIsTyped(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}

	echo, err := f.session.AddTransaction(ctx, 800, "groceries run", "food", "card")
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	if echo.Type != core.TypeExpense {
		t.Fatalf("expected expense type, got %q", echo.Type)
	}

	entries := f.session.Transactions.Entries()
	if len(entries) != 1 || entries[0].Type != core.TypeExpense {
		t.Fatalf("unexpected transaction entries: %+v", entries)
	}

	// The two ledgers are independent collections.
	if f.session.Expenses.Count() != 0 {
		t.Fatal("transaction append leaked into the expense ledger")
	}
	if got := f.session.Transactions.Total(); got != 800 {
		t.Fatalf("expected transactions total 800, got %d", got)
	}
}

func TestLedgerListenerErrorResets(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set income: %v", err)
	}
	if _, err := f.session.AddExpense(ctx, 500, "", "", ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	f.store.EmitError("users/u1/expenses", errors.New("listener lost"))

	if f.session.Expenses.Count() != 0 {
		t.Fatal("expected ledger reset to empty")
	}
	var se *core.StoreError
	if !errors.As(f.session.Expenses.Err(), &se) {
		t.Fatalf("expected StoreError, got %v", f.session.Expenses.Err())
	}
	if got := f.session.Expenses.State(); got != Broken {
		t.Fatalf("expected Broken state, got %s", got)
	}
}
