package memory

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (r *OTPRepo) Create(ctx context.Context, rec *domain.OTPRecord) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *rec
	s.otps[rec.ID] = &c
	return nil
}

func (r *OTPRepo) CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.otps {
		if o.UserID == userID && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *OTPRepo) GetLatestLive(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) (*domain.OTPRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.OTPRecord
	for _, o := range s.otps {
		if o.UserID != userID || o.Purpose != purpose || !o.IsLive(now) {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *OTPRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[id]
	if !ok {
		return 0, fmt.Errorf("otp %s not found", id)
	}
	o.Attempts++
	return o.Attempts, nil
}

func (r *OTPRepo) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[id]
	if !ok || o.IsVerified || o.UsedAt != nil {
		return false, nil
	}
	o.IsVerified = true
	o.UsedAt = &at
	return true, nil
}

func (r *OTPRepo) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.otps[id]; ok && o.UsedAt == nil {
		o.UsedAt = &at
	}
	return nil
}

func (r *OTPRepo) DeleteExpired(ctx context.Context, expiredBefore, createdBefore time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, o := range s.otps {
		if o.ExpiresAt.Before(expiredBefore) && o.CreatedAt.Before(createdBefore) {
			delete(s.otps, id)
			n++
		}
	}
	return n, nil
}
