package tracker

import (
	"context"
	"errors"
	"testing"

	"kyat/internal/core"
)

func TestSetInitialIncomeValidation(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	for _, amount := range []int64{0, 1, 999} {
		err := f.session.Income.SetInitial(ctx, amount)
		var ve *core.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("amount %d expected ValidationError, got %v", amount, err)
		}
	}

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set initial: %v", err)
	}
	if got := f.session.Income.Total(); got != 5000 {
		t.Fatalf("expected observed income 5000, got %d", got)
	}
	if f.session.Income.LastUpdated().IsZero() {
		t.Fatal("expected lastUpdated to be set")
	}
	if !f.session.Income.HasIncomeSet() {
		t.Fatal("expected HasIncomeSet after initial set")
	}
}

func TestSetInitialIncomeOverwrites(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := f.session.Income.SetInitial(ctx, 8000); err != nil {
		t.Fatalf("second set: %v", err)
	}
	if got := f.session.Income.Total(); got != 8000 {
		t.Fatalf("expected 8000 after overwrite, got %d", got)
	}
}

func TestReplaceIncomeReportsDelta(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set initial: %v", err)
	}

	change, err := f.session.Income.Replace(ctx, 8000)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if change.Old != 5000 || change.New != 8000 || change.Difference != 3000 {
		t.Fatalf("unexpected change: %+v", change)
	}
	if got := f.session.Income.Total(); got != 8000 {
		t.Fatalf("expected observed income 8000, got %d", got)
	}

	// A decrease reports a negative difference.
	change, err = f.session.Income.Replace(ctx, 6000)
	if err != nil {
		t.Fatalf("replace down: %v", err)
	}
	if change.Difference != -2000 {
		t.Fatalf("expected difference -2000, got %d", change.Difference)
	}
}

func TestReplaceIncomeWithoutExisting(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")

	change, err := f.session.Income.Replace(context.Background(), 3000)
	if err != nil {
		t.Fatalf("replace on absent doc: %v", err)
	}
	if change.Old != 0 || change.New != 3000 {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestReplaceIncomeValidation(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")

	_, err := f.session.Income.Replace(context.Background(), 999)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAddDelta(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set initial: %v", err)
	}

	total, err := f.session.Income.AddDelta(ctx, 500)
	if err != nil {
		t.Fatalf("add delta: %v", err)
	}
	if total != 5500 {
		t.Fatalf("expected total 5500, got %d", total)
	}
	if got := f.session.Income.Total(); got != 5500 {
		t.Fatalf("expected observed income 5500, got %d", got)
	}

	for _, amount := range []int64{0, -100} {
		if _, err := f.session.Income.AddDelta(ctx, amount); err == nil {
			t.Fatalf("delta %d expected error", amount)
		}
	}
}

func TestAddDeltaCreatesInitial(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")

	// No income document yet: AddDelta delegates to SetInitial, so the
	// initial-income minimum applies.
	total, err := f.session.Income.AddDelta(context.Background(), 2000)
	if err != nil {
		t.Fatalf("add delta on absent doc: %v", err)
	}
	if total != 2000 {
		t.Fatalf("expected total 2000, got %d", total)
	}
}

func TestIncomeRequiresUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := f.session.Income.Replace(ctx, 5000); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := f.session.Income.AddDelta(ctx, 500); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestIncomeListenerErrorResets(t *testing.T) {
	f := newFixture(t)
	f.signIn("u1")
	ctx := context.Background()

	if err := f.session.Income.SetInitial(ctx, 5000); err != nil {
		t.Fatalf("set initial: %v", err)
	}

	f.store.EmitError("users/u1/settings/income", errors.New("listener lost"))

	if got := f.session.Income.Total(); got != 0 {
		t.Fatalf("expected income reset to 0, got %d", got)
	}
	var se *core.StoreError
	if !errors.As(f.session.Income.Err(), &se) {
		t.Fatalf("expected StoreError, got %v", f.session.Income.Err())
	}
	if got := f.session.Income.State(); got != Broken {
		t.Fatalf("expected Broken state, got %s", got)
	}
}
