package httpapi

import (
	"PayoutGuard/internal/core/domain"
	"encoding/json"
	"errors"
	"net/http"
)

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

type errorBody struct {
	Error  string      `json:"error"`
	Code   string      `json:"code,omitempty"`
	Payout *payoutView `json:"payout,omitempty"`
}

// errorKind maps a domain error to its HTTP status and a stable machine code.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "authentication_required"
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, domain.ErrSelfApprovalForbidden):
		return http.StatusForbidden, "self_approval_forbidden"
	case errors.Is(err, domain.ErrOTPRequired):
		return http.StatusForbidden, "otp_required"
	case errors.Is(err, domain.ErrOTPInvalid):
		return http.StatusForbidden, "otp_invalid"
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return http.StatusForbidden, "otp_max_attempts"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		return http.StatusUnprocessableEntity, "daily_limit_exceeded"
	case errors.Is(err, domain.ErrAccountIneligible):
		return http.StatusUnprocessableEntity, "account_ineligible"
	case errors.Is(err, domain.ErrNotPendingApproval):
		return http.StatusConflict, "not_pending_approval"
	case errors.Is(err, domain.ErrNotScheduled):
		return http.StatusConflict, "not_scheduled"
	case errors.Is(err, domain.ErrNotCancellable):
		return http.StatusConflict, "not_cancellable"
	case errors.Is(err, domain.ErrLastAccount):
		return http.StatusConflict, "last_account"
	case errors.Is(err, domain.ErrPendingPayouts):
		return http.StatusConflict, "pending_payouts"
	case errors.Is(err, domain.ErrExecutorFailure):
		return http.StatusBadGateway, "executor_failure"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError renders err. Infrastructure failures never leak their cause.
// action, when set, is the record the failed call left behind.
func writeServiceError(w http.ResponseWriter, err error, action *domain.SensitiveAction) {
	status, code := errorKind(err)
	body := errorBody{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		body.Error = "Internal server error"
	}
	if action != nil {
		v := newPayoutView(action)
		body.Payout = &v
	}
	writeJSON(w, status, body)
}
