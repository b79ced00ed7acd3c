package core

import (
	"errors"
	"testing"
)

func TestValidateIncomeAmount(t *testing.T) {
	cases := []struct {
		amount int64
		ok     bool
	}{
		{1000, true},
		{5000, true},
		{MaxIncome, true},
		{999, false},
		{0, false},
		{-1, false},
		{MaxIncome + 1, false},
	}
	for _, tc := range cases {
		err := ValidateIncomeAmount(tc.amount)
		if tc.ok && err != nil {
			t.Fatalf("amount %d expected ok, got %v", tc.amount, err)
		}
		if !tc.ok {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("amount %d expected ValidationError, got %v", tc.amount, err)
			}
		}
	}
}

func TestValidateIncomeDelta(t *testing.T) {
	if err := ValidateIncomeDelta(1); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, amount := range []int64{0, -50} {
		if err := ValidateIncomeDelta(amount); err == nil {
			t.Fatalf("delta %d expected error", amount)
		}
	}
}

func TestValidateExpenseAmount(t *testing.T) {
	cases := []struct {
		amount    int64
		available int64
		ok        bool
	}{
		{100, 100, true},
		{100, 5000, true},
		{5000, 5000, true},
		{99, 5000, false},
		{0, 5000, false},
		{-100, 5000, false},
		{200, 100, false},
	}
	for _, tc := range cases {
		err := ValidateExpenseAmount(tc.amount, tc.available)
		if tc.ok && err != nil {
			t.Fatalf("amount %d/%d expected ok, got %v", tc.amount, tc.available, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("amount %d/%d expected error", tc.amount, tc.available)
		}
	}
}

func TestValidateExpenseAmountOverage(t *testing.T) {
	err := ValidateExpenseAmount(600, 500)
	var ibe *InsufficientBalanceError
	if !errors.As(err, &ibe) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if ibe.Overage() != 100 {
		t.Fatalf("expected overage 100, got %d", ibe.Overage())
	}
}

func TestValidateExpenseAmountZeroIncome(t *testing.T) {
	// No income set: any positive expense must be rejected.
	if err := ValidateExpenseAmount(100, 0); err == nil {
		t.Fatalf("expected rejection against zero balance")
	}
}
