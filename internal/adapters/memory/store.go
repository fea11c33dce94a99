// Package memory is a mutex-guarded, in-process implementation of every store the
// engine needs. It backs dev mode and the service tests.
package memory

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store holds all state behind one lock, which is what gives the conditional
// transitions their atomicity.
type Store struct {
	mu  sync.Mutex
	log zerolog.Logger

	accounts   map[uuid.UUID]*domain.BankAccount
	actions    map[uuid.UUID]*domain.SensitiveAction
	otps       map[uuid.UUID]*domain.OTPRecord
	roles      []*domain.RoleAssignment
	users      map[uuid.UUID]*domain.User
	sessions   []*domain.Session
	organizers map[uuid.UUID]uuid.UUID // organizer -> owner
	audit      []*domain.AuditEntry
	changes    []*domain.BankAccountChange
}

// Repository views over the shared state. Each satisfies one port.
type (
	BankAccountRepo struct{ s *Store }
	ActionRepo      struct{ s *Store }
	OTPRepo         struct{ s *Store }
	RoleRepo        struct{ s *Store }
	AuditRepo       struct{ s *Store }
	IdentityRepo    struct{ s *Store }
)

var (
	_ ports.BankAccountRepository     = (*BankAccountRepo)(nil)
	_ ports.SensitiveActionRepository = (*ActionRepo)(nil)
	_ ports.OTPRepository             = (*OTPRepo)(nil)
	_ ports.RoleRepository            = (*RoleRepo)(nil)
	_ ports.AuditLogStore             = (*AuditRepo)(nil)
	_ ports.IdentityRepository        = (*IdentityRepo)(nil)
)

func NewStore(baseLogger *zerolog.Logger) *Store {
	return &Store{
		log:        baseLogger.With().Str("component", "memory_store").Logger(),
		accounts:   make(map[uuid.UUID]*domain.BankAccount),
		actions:    make(map[uuid.UUID]*domain.SensitiveAction),
		otps:       make(map[uuid.UUID]*domain.OTPRecord),
		users:      make(map[uuid.UUID]*domain.User),
		organizers: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *Store) BankAccounts() *BankAccountRepo { return &BankAccountRepo{s} }
func (s *Store) Actions() *ActionRepo           { return &ActionRepo{s} }
func (s *Store) OTPs() *OTPRepo                 { return &OTPRepo{s} }
func (s *Store) Roles() *RoleRepo               { return &RoleRepo{s} }
func (s *Store) Audit() *AuditRepo              { return &AuditRepo{s} }
func (s *Store) Identity() *IdentityRepo        { return &IdentityRepo{s} }

func copyAccount(a *domain.BankAccount) *domain.BankAccount {
	c := *a
	return &c
}

func copyAction(a *domain.SensitiveAction) *domain.SensitiveAction {
	c := *a
	return &c
}

func copySnapshot(s *domain.AccountSnapshot) *domain.AccountSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
