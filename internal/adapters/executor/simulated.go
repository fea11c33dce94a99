package executor

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Simulated settles every payout instantly with a ULID reference. Dev only.
type Simulated struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	log     zerolog.Logger
}

var _ ports.PayoutExecutor = (*Simulated)(nil)

func NewSimulated(baseLogger *zerolog.Logger) *Simulated {
	return &Simulated{
		entropy: ulid.Monotonic(rand.Reader, 0),
		log:     baseLogger.With().Str("component", "simulated_executor").Logger(),
	}
}

func (s *Simulated) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	s.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	ref := "SIM-" + id.String()
	s.log.Info().
		Str("action_id", req.ActionID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Str("currency", req.Currency).
		Str("reference", ref).
		Msg("Simulated payout settled")
	return domain.ExecutionResult{Success: true, Reference: ref}, nil
}
