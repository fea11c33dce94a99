package services

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RoleService resolves payout authority and the daily volume already committed.
type RoleService struct {
	log    zerolog.Logger
	roles  ports.RoleRepository
	volume ports.CommittedVolumeReader
	loc    *time.Location
	now    Clock
}

var (
	_ ports.AuthorityResolver   = (*RoleService)(nil)
	_ ports.DailyVolumeResolver = (*RoleService)(nil)
)

func NewRoleService(
	roles ports.RoleRepository,
	volume ports.CommittedVolumeReader,
	loc *time.Location,
	baseLogger *zerolog.Logger,
) *RoleService {
	if loc == nil {
		loc = time.Local
	}
	return &RoleService{
		log:    baseLogger.With().Str("component", "role_service").Logger(),
		roles:  roles,
		volume: volume,
		loc:    loc,
		now:    time.Now,
	}
}

// HasPayoutAuthority looks up the user's single current assignment (most recent
// assignedAt wins) and decides whether it carries payout authority.
func (s *RoleService) HasPayoutAuthority(ctx context.Context, userID uuid.UUID) (domain.Authority, error) {
	role, err := s.roles.GetCurrentAssignment(ctx, userID, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load role assignment")
		return domain.Authority{}, domain.Persistence("load role assignment", err)
	}
	if role == nil {
		return domain.Authority{Reason: "no active role assignment"}, nil
	}
	if !role.GrantsPayoutAuthority() {
		return domain.Authority{Role: role, Reason: "role " + role.RoleName + " cannot process payouts"}, nil
	}
	return domain.Authority{Authorized: true, Role: role, Reason: "authorized"}, nil
}

// ListApprovers returns every user whose current assignment carries payout
// authority, except exclude.
func (s *RoleService) ListApprovers(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error) {
	assignments, err := s.roles.ListCurrentAssignments(ctx, s.now())
	if err != nil {
		return nil, domain.Persistence("list role assignments", err)
	}
	approvers := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		if a.UserID == exclude || !a.GrantsPayoutAuthority() {
			continue
		}
		approvers = append(approvers, a.UserID)
	}
	return approvers, nil
}

// GetDailyCommitted sums the user's committed payout volume since local midnight of asOf.
func (s *RoleService) GetDailyCommitted(ctx context.Context, userID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	sum, err := s.volume.SumCommittedSince(ctx, userID, s.StartOfDay(asOf))
	if err != nil {
		return decimal.Zero, domain.Persistence("sum committed volume", err)
	}
	return sum, nil
}

// StartOfDay returns local midnight for t in the policy time zone.
func (s *RoleService) StartOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}
