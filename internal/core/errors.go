package core

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by mutating operations when no user
// is signed in. The caller is expected to redirect to authentication.
var ErrNotAuthenticated = errors.New("user not authenticated")

// ValidationError reports bad or below-minimum numeric input. Always
// recoverable; surfaced to the caller without retry.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError rejects an expense that would drive the
// balance negative. The check is advisory: it runs against the caller's
// balance snapshot, not a storage-level transaction.
type InsufficientBalanceError struct {
	Amount    int64
	Available int64
}

// Overage is the exact amount by which the expense exceeds the balance.
func (e *InsufficientBalanceError) Overage() int64 { return e.Amount - e.Available }

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("amount exceeds available balance by %s", FormatAmount(e.Overage()))
}

// StoreError wraps any remote-adapter failure, including subscription
// errors. No automatic retries are performed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore wraps err in a StoreError unless it already carries core
// semantics (validation, balance, auth) that must pass through intact.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var ibe *InsufficientBalanceError
	if errors.As(err, &ve) || errors.As(err, &ibe) || errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
