package memory

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PutUser inserts or replaces a profile.
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

// PutSession records a login session.
func (s *Store) PutSession(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sess
	s.sessions = append(s.sessions, &c)
}

// PutOrganizer records the owner of an organizer.
func (s *Store) PutOrganizer(organizerID, ownerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizers[organizerID] = ownerID
}

// AssignRole appends a role assignment.
func (s *Store) AssignRole(role *domain.RoleAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *role
	s.roles = append(s.roles, &c)
}

func (r *IdentityRepo) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *IdentityRepo) HasValidSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsValid(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *IdentityRepo) OwnsOrganizer(ctx context.Context, userID, organizerID uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.organizers[organizerID]
	return ok && owner == userID, nil
}

func (r *RoleRepo) GetCurrentAssignment(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.RoleAssignment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.RoleAssignment
	for _, a := range s.roles {
		if a.UserID != userID || !a.IsCurrent(now) {
			continue
		}
		if latest == nil || a.AssignedAt.After(latest.AssignedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *RoleRepo) ListCurrentAssignments(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := make(map[uuid.UUID]*domain.RoleAssignment)
	for _, a := range s.roles {
		if !a.IsCurrent(now) {
			continue
		}
		if cur, ok := byUser[a.UserID]; !ok || a.AssignedAt.After(cur.AssignedAt) {
			byUser[a.UserID] = a
		}
	}
	out := make([]*domain.RoleAssignment, 0, len(byUser))
	for _, a := range byUser {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, nil
}
