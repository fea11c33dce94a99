package memory

import (
	"PayoutGuard/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

// DemoIdentities are the principals created by SeedDemo.
type DemoIdentities struct {
	OrganizerID uuid.UUID
	Owner       uuid.UUID // finance_admin, owns the organizer
	Approver    uuid.UUID // super_admin
	OwnerSID    uuid.UUID
	ApproverSID uuid.UUID
}

// SeedDemo creates an organizer owned by a finance admin and a second admin who
// can approve, each with a live session. Dev mode only.
func (s *Store) SeedDemo(now time.Time) DemoIdentities {
	ids := DemoIdentities{
		OrganizerID: uuid.New(),
		Owner:       uuid.New(),
		Approver:    uuid.New(),
		OwnerSID:    uuid.New(),
		ApproverSID: uuid.New(),
	}

	for user, sid := range map[uuid.UUID]uuid.UUID{ids.Owner: ids.OwnerSID, ids.Approver: ids.ApproverSID} {
		s.PutUser(&domain.User{ID: user, IsActive: true, AccountStatus: domain.AccountStatusActive, CreatedAt: now, UpdatedAt: now})
		s.PutSession(&domain.Session{ID: sid, UserID: user, IsActive: true, ExpiresAt: now.Add(30 * 24 * time.Hour)})
	}
	s.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: ids.Owner, RoleName: domain.RoleFinanceAdmin, IsActive: true, AssignedAt: now})
	s.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: ids.Approver, RoleName: domain.RoleSuperAdmin, IsActive: true, AssignedAt: now})
	s.PutOrganizer(ids.OrganizerID, ids.Owner)

	s.log.Info().
		Str("organizer_id", ids.OrganizerID.String()).
		Str("owner_id", ids.Owner.String()).
		Str("approver_id", ids.Approver.String()).
		Msg("Seeded demo identities")
	return ids
}
