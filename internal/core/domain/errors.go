package domain

import (
	"errors"
	"fmt"
)

// Policy and infrastructure errors. Callers match with errors.Is; the wrapped
// message carries the specific reason.
var (
	ErrValidation             = errors.New("validation failed")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrNotFound               = errors.New("not found")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired confirmation token")
	ErrRateLimited            = errors.New("too many requests")
	ErrOTPRequired            = errors.New("OTP verification required for payout processing")
	ErrOTPInvalid             = errors.New("invalid or expired OTP")
	ErrMaxAttemptsExceeded    = errors.New("maximum verification attempts exceeded")
	ErrSelfApprovalForbidden  = errors.New("cannot approve your own payout")
	ErrNotPendingApproval     = errors.New("payout is not pending approval")
	ErrNotScheduled           = errors.New("payout is not scheduled or not yet due")
	ErrNotCancellable         = errors.New("payout can no longer be cancelled")
	ErrLastAccount            = errors.New("cannot remove the only bank account")
	ErrPendingPayouts         = errors.New("cannot remove bank account with pending payouts")
	ErrDailyLimitExceeded     = errors.New("daily payout limit exceeded")
	ErrAccountIneligible      = errors.New("bank account not eligible for payout")
	ErrExecutorFailure        = errors.New("payout execution failed")
	ErrPersistence            = errors.New("persistence failure")
)

// ExecutorError carries the reason reported by the payout executor.
type ExecutorError struct {
	Reason string
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s: %s", ErrExecutorFailure.Error(), e.Reason)
}

func (e *ExecutorError) Unwrap() error {
	return ErrExecutorFailure
}

// Reasonf wraps a sentinel with a specific reason.
func Reasonf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Persistence wraps an infrastructure error so it matches ErrPersistence while
// keeping the cause reachable.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
