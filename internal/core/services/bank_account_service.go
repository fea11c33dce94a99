package services

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	accountNumberRegex = regexp.MustCompile(`^[0-9A-Za-z]{6,34}$`)
	bankCodeRegex      = regexp.MustCompile(`^[0-9A-Za-z]{2,11}$`)
)

// ChangeInspector flags suspicious bank account changes.
type ChangeInspector interface {
	Inspect(ctx context.Context, change *domain.BankAccountChange) (suspicious bool, reason string)
}

// NoSuspicion never flags a change.
type NoSuspicion struct{}

func (NoSuspicion) Inspect(context.Context, *domain.BankAccountChange) (bool, string) {
	return false, ""
}

// BankAccountConfig holds the registry's timing policy.
type BankAccountConfig struct {
	CoolingPeriod   time.Duration
	ConfirmationTTL time.Duration
}

// AddAccountResult is returned by AddAccount. ConfirmationToken is the raw token
// and is empty when no confirmation was requested.
type AddAccountResult struct {
	AccountID            uuid.UUID
	CoolingUntil         time.Time
	RequiresConfirmation bool
	ConfirmationToken    string
}

// UpdateAccountResult is returned by UpdateAccount.
type UpdateAccountResult struct {
	RequiresConfirmation bool
	CoolingUntil         time.Time
	ConfirmationToken    string
}

// AccountView is the display form of an active account.
type AccountView struct {
	ID                  uuid.UUID
	BankName            string
	BankCode            string
	AccountNumberMasked string
	AccountName         string
	IsDefault           bool
	IsVerified          bool
	PendingConfirmation bool
	CoolingUntil        time.Time
	CoolingRemaining    time.Duration
}

// BankAccountService owns organizer bank accounts, their cooling and confirmation
// state, and the payout eligibility gate.
type BankAccountService struct {
	log       zerolog.Logger
	accounts  ports.BankAccountRepository
	identity  ports.IdentityRepository
	payouts   ports.OpenPayoutChecker
	audit     auditor
	notifier  ports.Notifier
	tokens    ports.TokenIssuer
	inspector ChangeInspector
	cfg       BankAccountConfig
	now       Clock
}

var _ ports.EligibilityChecker = (*BankAccountService)(nil)

func NewBankAccountService(
	accounts ports.BankAccountRepository,
	identity ports.IdentityRepository,
	payouts ports.OpenPayoutChecker,
	auditStore ports.AuditLogStore,
	notifier ports.Notifier,
	tokens ports.TokenIssuer,
	cfg BankAccountConfig,
	baseLogger *zerolog.Logger,
) *BankAccountService {
	log := baseLogger.With().Str("component", "bank_account_service").Logger()
	return &BankAccountService{
		log:       log,
		accounts:  accounts,
		identity:  identity,
		payouts:   payouts,
		audit:     auditor{store: auditStore, log: log},
		notifier:  notifier,
		tokens:    tokens,
		inspector: NoSuspicion{},
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithInspector replaces the suspicious-change hook.
func (s *BankAccountService) WithInspector(inspector ChangeInspector) *BankAccountService {
	s.inspector = inspector
	return s
}

// authorize resolves the session actor and checks organizer ownership.
func (s *BankAccountService) authorize(ctx context.Context, organizerID uuid.UUID) (domain.Actor, error) {
	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, domain.ErrAuthenticationRequired
	}
	owns, err := s.identity.OwnsOrganizer(ctx, actor.UserID, organizerID)
	if err != nil {
		return domain.Actor{}, domain.Persistence("check organizer ownership", err)
	}
	if !owns {
		return domain.Actor{}, domain.Reasonf(domain.ErrNotAuthorized, "user does not own organizer %s", organizerID)
	}
	return actor, nil
}

func validateNewAccount(in domain.NewBankAccount) error {
	if strings.TrimSpace(in.BankName) == "" || len(in.BankName) > 100 {
		return domain.Reasonf(domain.ErrValidation, "bank name must be between 1 and 100 characters")
	}
	if !bankCodeRegex.MatchString(in.BankCode) {
		return domain.Reasonf(domain.ErrValidation, "bank code has an invalid format")
	}
	if !accountNumberRegex.MatchString(in.AccountNumber) {
		return domain.Reasonf(domain.ErrValidation, "account number has an invalid format")
	}
	if strings.TrimSpace(in.AccountName) == "" || len(in.AccountName) > 100 {
		return domain.Reasonf(domain.ErrValidation, "account name must be between 1 and 100 characters")
	}
	return nil
}

func validateUpdate(u domain.BankAccountUpdate) error {
	if u.BankName != nil && (strings.TrimSpace(*u.BankName) == "" || len(*u.BankName) > 100) {
		return domain.Reasonf(domain.ErrValidation, "bank name must be between 1 and 100 characters")
	}
	if u.BankCode != nil && !bankCodeRegex.MatchString(*u.BankCode) {
		return domain.Reasonf(domain.ErrValidation, "bank code has an invalid format")
	}
	if u.AccountNumber != nil && !accountNumberRegex.MatchString(*u.AccountNumber) {
		return domain.Reasonf(domain.ErrValidation, "account number has an invalid format")
	}
	if u.AccountName != nil && (strings.TrimSpace(*u.AccountName) == "" || len(*u.AccountName) > 100) {
		return domain.Reasonf(domain.ErrValidation, "account name must be between 1 and 100 characters")
	}
	return nil
}

// AddAccount registers a new payout destination. The account starts in cooling and,
// when requireConfirmation is set, pending out-of-band confirmation.
func (s *BankAccountService) AddAccount(ctx context.Context, organizerID uuid.UUID, in domain.NewBankAccount, requireConfirmation bool) (*AddAccountResult, error) {
	actor, err := s.authorize(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if err := validateNewAccount(in); err != nil {
		return nil, err
	}
	log := s.log.With().Str("organizer_id", organizerID.String()).Str("user_id", actor.UserID.String()).Logger()

	now := s.now().UTC()
	acct := &domain.BankAccount{
		ID:            uuid.New(),
		OrganizerID:   organizerID,
		BankName:      strings.TrimSpace(in.BankName),
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		AccountName:   strings.TrimSpace(in.AccountName),
		IsDefault:     in.IsDefault,
		IsActive:      true,
		CoolingUntil:  now.Add(s.cfg.CoolingPeriod),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var rawToken string
	if requireConfirmation {
		raw, digest, err := s.tokens.NewToken()
		if err != nil {
			return nil, domain.Persistence("mint confirmation token", err)
		}
		expires := now.Add(s.cfg.ConfirmationTTL)
		rawToken = raw
		acct.PendingConfirmation = true
		acct.ConfirmationTokenHash = &digest
		acct.ConfirmationExpiresAt = &expires
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		log.Error().Err(err).Msg("Failed to create bank account")
		return nil, domain.Persistence("create bank account", err)
	}
	log.Info().Str("bank_account_id", acct.ID.String()).Bool("confirmation", requireConfirmation).Msg("Bank account added")

	s.recordChange(ctx, actor, acct, domain.ChangeAdded, nil, domain.SnapshotOf(acct), requireConfirmation, now)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actor.UserID,
		EventType:    domain.EventBankAccountAdded,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   acct.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Bank account added",
		Details: map[string]string{
			"organizer_id":   organizerID.String(),
			"account_number": acct.MaskedNumber(),
			"cooling_until":  acct.CoolingUntil.Format(time.RFC3339),
		},
		CreatedAt: now,
	})

	s.notifyChange(ctx, actor.UserID, ports.NotifyBankAccountAdded, acct, rawToken, nil)

	return &AddAccountResult{
		AccountID:            acct.ID,
		CoolingUntil:         acct.CoolingUntil,
		RequiresConfirmation: requireConfirmation,
		ConfirmationToken:    rawToken,
	}, nil
}

// UpdateAccount applies a partial update. A critical change (account number or
// bank code) resets verification, restarts cooling and requires confirmation.
func (s *BankAccountService) UpdateAccount(ctx context.Context, accountID, organizerID uuid.UUID, update domain.BankAccountUpdate) (*UpdateAccountResult, error) {
	actor, err := s.authorize(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if err := validateUpdate(update); err != nil {
		return nil, err
	}
	log := s.log.With().Str("bank_account_id", accountID.String()).Str("user_id", actor.UserID.String()).Logger()

	acct, err := s.accounts.GetActive(ctx, accountID, organizerID)
	if err != nil {
		return nil, domain.Persistence("load bank account", err)
	}
	if acct == nil {
		return nil, domain.Reasonf(domain.ErrNotFound, "no active bank account %s", accountID)
	}

	now := s.now().UTC()
	previous := domain.SnapshotOf(acct)
	critical := update.IsCriticalChange(acct)
	update.Apply(acct)
	acct.UpdatedAt = now

	var rawToken string
	if critical {
		raw, digest, err := s.tokens.NewToken()
		if err != nil {
			return nil, domain.Persistence("mint confirmation token", err)
		}
		expires := now.Add(s.cfg.ConfirmationTTL)
		rawToken = raw
		acct.IsVerified = false
		acct.CoolingUntil = now.Add(s.cfg.CoolingPeriod)
		acct.PendingConfirmation = true
		acct.ConfirmationTokenHash = &digest
		acct.ConfirmationExpiresAt = &expires
	}

	persist := s.accounts.UpdateDetails
	if critical {
		persist = s.accounts.ApplyCriticalChange
	}
	if err := persist(ctx, acct); err != nil {
		log.Error().Err(err).Msg("Failed to update bank account")
		return nil, domain.Persistence("update bank account", err)
	}
	log.Info().Bool("critical", critical).Msg("Bank account updated")

	risk := domain.RiskMedium
	if critical {
		risk = domain.RiskHigh
	}
	s.recordChange(ctx, actor, acct, domain.ChangeUpdated, previous, domain.SnapshotOf(acct), critical, now)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actor.UserID,
		EventType:    domain.EventBankAccountUpdated,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   acct.ID,
		RiskLevel:    risk,
		Description:  "Bank account updated",
		Details: map[string]string{
			"organizer_id":    organizerID.String(),
			"critical_change": strconv.FormatBool(critical),
		},
		CreatedAt: now,
	})

	s.notifyChange(ctx, actor.UserID, ports.NotifyBankAccountUpdated, acct, rawToken, nil)

	return &UpdateAccountResult{
		RequiresConfirmation: critical,
		CoolingUntil:         acct.CoolingUntil,
		ConfirmationToken:    rawToken,
	}, nil
}

// RemoveAccount soft-deletes an account. The organizer keeps at least one active
// account and nothing is removed while payouts are in flight.
func (s *BankAccountService) RemoveAccount(ctx context.Context, accountID, organizerID uuid.UUID) error {
	actor, err := s.authorize(ctx, organizerID)
	if err != nil {
		return err
	}
	log := s.log.With().Str("bank_account_id", accountID.String()).Str("user_id", actor.UserID.String()).Logger()

	acct, err := s.accounts.GetActive(ctx, accountID, organizerID)
	if err != nil {
		return domain.Persistence("load bank account", err)
	}
	if acct == nil {
		return domain.Reasonf(domain.ErrNotFound, "no active bank account %s", accountID)
	}

	count, err := s.accounts.CountActive(ctx, organizerID)
	if err != nil {
		return domain.Persistence("count bank accounts", err)
	}
	if count <= 1 {
		return domain.ErrLastAccount
	}

	open, err := s.payouts.HasOpenForOrganizer(ctx, organizerID)
	if err != nil {
		return domain.Persistence("check open payouts", err)
	}
	if open {
		return domain.ErrPendingPayouts
	}

	now := s.now().UTC()
	if err := s.accounts.Deactivate(ctx, accountID, organizerID, now); err != nil {
		log.Error().Err(err).Msg("Failed to deactivate bank account")
		return domain.Persistence("deactivate bank account", err)
	}
	log.Info().Msg("Bank account removed")

	details := map[string]string{"organizer_id": organizerID.String()}
	var fallback map[string]string
	if acct.IsDefault {
		// No account is promoted; payouts now go wherever eligibility lands.
		details["was_default"] = "true"
		destination := "none"
		if elig, err := s.IsEligibleForPayout(ctx, organizerID); err != nil {
			log.Warn().Err(err).Msg("Failed to resolve payout destination after default removal")
			destination = "unknown"
		} else if elig.AccountID != uuid.Nil {
			destination = elig.AccountID.String()
		}
		details["payout_destination"] = destination
		fallback = map[string]string{"was_default": "true", "payout_destination": destination}
		log.Warn().Str("payout_destination", destination).Msg("Default bank account removed without a replacement default")
	}

	s.recordChange(ctx, actor, acct, domain.ChangeRemoved, domain.SnapshotOf(acct), nil, false, now)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actor.UserID,
		EventType:    domain.EventBankAccountRemoved,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   acct.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Bank account removed",
		Details:      details,
		CreatedAt:    now,
	})
	s.notifyChange(ctx, actor.UserID, ports.NotifyBankAccountRemoved, acct, "", fallback)
	return nil
}

// ConfirmChange consumes a confirmation token. The token itself is the proof, so
// no session is required.
func (s *BankAccountService) ConfirmChange(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpiredToken
	}
	now := s.now().UTC()

	acct, err := s.accounts.ConsumeConfirmation(ctx, s.tokens.Digest(token), now)
	if err != nil {
		return domain.Persistence("consume confirmation", err)
	}
	if acct == nil {
		return domain.ErrInvalidOrExpiredToken
	}
	s.log.Info().Str("bank_account_id", acct.ID.String()).Msg("Bank account change confirmed")

	if err := s.audit.store.ConfirmLatestBankChange(ctx, acct.ID, now); err != nil {
		s.log.Warn().Err(err).Str("bank_account_id", acct.ID.String()).Msg("Consistency warning: could not stamp change log confirmation")
	}
	actorID := uuid.Nil
	if actor, ok := domain.ActorFromContext(ctx); ok {
		actorID = actor.UserID
	}
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		EventType:    domain.EventBankAccountConfirmed,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   acct.ID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Bank account change confirmed",
		Details:      map[string]string{"organizer_id": acct.OrganizerID.String()},
		CreatedAt:    now,
	})
	return nil
}

// ResendConfirmation issues a fresh token for an account still awaiting
// confirmation; the previous token stops working.
func (s *BankAccountService) ResendConfirmation(ctx context.Context, accountID, organizerID uuid.UUID) error {
	actor, err := s.authorize(ctx, organizerID)
	if err != nil {
		return err
	}

	raw, digest, err := s.tokens.NewToken()
	if err != nil {
		return domain.Persistence("mint confirmation token", err)
	}
	now := s.now().UTC()
	expires := now.Add(s.cfg.ConfirmationTTL)

	replaced, err := s.accounts.ReplaceConfirmation(ctx, accountID, organizerID, digest, expires)
	if err != nil {
		return domain.Persistence("replace confirmation", err)
	}
	if !replaced {
		return domain.Reasonf(domain.ErrNotFound, "no bank account %s awaiting confirmation", accountID)
	}

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actor.UserID,
		EventType:    domain.EventBankConfirmationResent,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   accountID,
		RiskLevel:    domain.RiskLow,
		Description:  "Bank account confirmation re-issued",
		Details:      map[string]string{"organizer_id": organizerID.String()},
		CreatedAt:    now,
	})
	notify(ctx, s.notifier, s.log, ports.NotifyBankChangeConfirmation, actor.UserID, map[string]string{
		"bank_account_id": accountID.String(),
		"token":           raw,
		"expires_at":      expires.Format(time.RFC3339),
	})
	return nil
}

// MarkVerified records a successful out-of-band verification of the account.
func (s *BankAccountService) MarkVerified(ctx context.Context, accountID uuid.UUID) error {
	now := s.now().UTC()
	acct, err := s.accounts.MarkVerified(ctx, accountID, now)
	if err != nil {
		return domain.Persistence("mark bank account verified", err)
	}
	if acct == nil {
		return domain.Reasonf(domain.ErrNotFound, "no active bank account %s", accountID)
	}
	s.log.Info().Str("bank_account_id", accountID.String()).Msg("Bank account verified")

	s.audit.record(ctx, &domain.AuditEntry{
		EventType:    domain.EventBankAccountVerified,
		Category:     domain.CategoryBankAccount,
		ResourceType: "bank_account",
		ResourceID:   accountID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Bank account verified",
		Details:      map[string]string{"organizer_id": acct.OrganizerID.String()},
		CreatedAt:    now,
	})
	return nil
}

// IsEligibleForPayout is the single gate consulted before money can move. The
// organizer's default active account is evaluated; without a default the newest
// eligible active account is used.
func (s *BankAccountService) IsEligibleForPayout(ctx context.Context, organizerID uuid.UUID) (domain.Eligibility, error) {
	accounts, err := s.accounts.ListActive(ctx, organizerID)
	if err != nil {
		return domain.Eligibility{}, domain.Persistence("list bank accounts", err)
	}
	if len(accounts) == 0 {
		return domain.Eligibility{Reason: domain.ReasonNoActiveAccount}, nil
	}

	now := s.now()
	for _, acct := range accounts {
		if acct.IsDefault {
			ok, reason := acct.CheckEligibility(now)
			return domain.Eligibility{Eligible: ok, Reason: reason, AccountID: acct.ID}, nil
		}
	}

	for _, acct := range accounts {
		if ok, reason := acct.CheckEligibility(now); ok {
			return domain.Eligibility{Eligible: true, Reason: reason, AccountID: acct.ID}, nil
		}
	}
	_, reason := accounts[0].CheckEligibility(now)
	return domain.Eligibility{Reason: reason, AccountID: accounts[0].ID}, nil
}

// OrganizerEligibility is IsEligibleForPayout behind the organizer ownership check.
func (s *BankAccountService) OrganizerEligibility(ctx context.Context, organizerID uuid.UUID) (domain.Eligibility, error) {
	if _, err := s.authorize(ctx, organizerID); err != nil {
		return domain.Eligibility{}, err
	}
	return s.IsEligibleForPayout(ctx, organizerID)
}

// ListAccounts returns the organizer's active accounts in display form.
func (s *BankAccountService) ListAccounts(ctx context.Context, organizerID uuid.UUID) ([]AccountView, error) {
	if _, err := s.authorize(ctx, organizerID); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListActive(ctx, organizerID)
	if err != nil {
		return nil, domain.Persistence("list bank accounts", err)
	}

	now := s.now()
	views := make([]AccountView, 0, len(accounts))
	for _, acct := range accounts {
		views = append(views, AccountView{
			ID:                  acct.ID,
			BankName:            acct.BankName,
			BankCode:            acct.BankCode,
			AccountNumberMasked: acct.MaskedNumber(),
			AccountName:         acct.AccountName,
			IsDefault:           acct.IsDefault,
			IsVerified:          acct.IsVerified,
			PendingConfirmation: acct.PendingConfirmation,
			CoolingUntil:        acct.CoolingUntil,
			CoolingRemaining:    domain.CoolingRemaining(acct.CoolingUntil, now),
		})
	}
	return views, nil
}

// ListChanges returns the organizer's change history with full account numbers stripped.
func (s *BankAccountService) ListChanges(ctx context.Context, organizerID uuid.UUID, page domain.Page) ([]*domain.BankAccountChange, error) {
	if _, err := s.authorize(ctx, organizerID); err != nil {
		return nil, err
	}
	changes, err := s.audit.store.ListBankChanges(ctx, organizerID, page.Normalize())
	if err != nil {
		return nil, domain.Persistence("list bank changes", err)
	}
	for _, c := range changes {
		if c.Previous != nil {
			c.Previous.AccountNumber = ""
		}
		if c.New != nil {
			c.New.AccountNumber = ""
		}
	}
	return changes, nil
}

func (s *BankAccountService) recordChange(
	ctx context.Context,
	actor domain.Actor,
	acct *domain.BankAccount,
	changeType domain.ChangeType,
	previous, next *domain.AccountSnapshot,
	confirmationRequired bool,
	at time.Time,
) {
	change := &domain.BankAccountChange{
		ID:                   uuid.New(),
		OrganizerID:          acct.OrganizerID,
		BankAccountID:        acct.ID,
		ChangeType:           changeType,
		Previous:             previous,
		New:                  next,
		ActorID:              actor.UserID,
		IPAddress:            actor.IPAddress,
		UserAgent:            actor.UserAgent,
		ConfirmationRequired: confirmationRequired,
		CreatedAt:            at,
	}
	if suspicious, reason := s.inspector.Inspect(ctx, change); suspicious {
		change.IsSuspicious = true
		change.SuspiciousReason = &reason
		s.log.Warn().Str("bank_account_id", acct.ID.String()).Str("reason", reason).Msg("Suspicious bank account change")
	}
	s.audit.recordBankChange(ctx, change)
}

func (s *BankAccountService) notifyChange(ctx context.Context, recipient uuid.UUID, eventType string, acct *domain.BankAccount, rawToken string, extra map[string]string) {
	payload := map[string]string{
		"bank_account_id": acct.ID.String(),
		"bank_name":       acct.BankName,
		"account_number":  acct.MaskedNumber(),
		"cooling_until":   acct.CoolingUntil.Format(time.RFC3339),
	}
	for k, v := range extra {
		payload[k] = v
	}
	notify(ctx, s.notifier, s.log, eventType, recipient, payload)

	if rawToken != "" {
		notify(ctx, s.notifier, s.log, ports.NotifyBankChangeConfirmation, recipient, map[string]string{
			"bank_account_id": acct.ID.String(),
			"token":           rawToken,
			"expires_at":      acct.ConfirmationExpiresAt.Format(time.RFC3339),
		})
	}
}
