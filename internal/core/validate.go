package core

// ValidateIncomeAmount checks an amount destined for the income
// singleton. Total over (input) -> error | nil; no side effects.
func ValidateIncomeAmount(amount int64) error {
	if amount < MinIncome {
		return newValidationError("Minimum income is %s", FormatAmount(MinIncome))
	}
	if amount > MaxIncome {
		return newValidationError("Income amount is too large")
	}
	return nil
}

// ValidateIncomeDelta checks an amount added on top of existing income.
func ValidateIncomeDelta(amount int64) error {
	if amount <= 0 {
		return newValidationError("Please enter a valid amount")
	}
	return nil
}

// ValidateExpenseAmount checks an expense amount against the caller's
// balance snapshot. The balance check is advisory: the snapshot may be
// stale relative to writes from another session.
func ValidateExpenseAmount(amount, available int64) error {
	if amount <= 0 {
		return newValidationError("Amount must be greater than 0")
	}
	if amount < MinExpense {
		return newValidationError("Minimum expense is %s", FormatAmount(MinExpense))
	}
	if amount > available {
		return &InsufficientBalanceError{Amount: amount, Available: available}
	}
	return nil
}
