package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
)

// PayoutExecutor is the only component that touches real money rails.
type PayoutExecutor interface {
	// Execute hands the payout to the rails. A transport error and a result with
	// Success=false are both treated as a failed execution.
	Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error)
}
