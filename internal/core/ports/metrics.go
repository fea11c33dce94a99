package ports

import "PayoutGuard/internal/core/domain"

// PayoutMetrics records engine outcomes.
type PayoutMetrics interface {
	ObserveTransition(status domain.ActionStatus)
	ObserveRejection(reason string)
	ObserveOTPVerification(result string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveTransition(domain.ActionStatus) {}
func (NopMetrics) ObserveRejection(string)               {}
func (NopMetrics) ObserveOTPVerification(string)         {}
