package services

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Rejection kinds reported to metrics.
const (
	RejectValidation    = "validation"
	RejectNotAuthorized = "not_authorized"
	RejectSession       = "session"
	RejectDailyLimit    = "daily_limit"
	RejectIneligible    = "ineligible_account"
	RejectOTPRequired   = "otp_required"
)

// PayoutPolicy holds the disposition thresholds.
type PayoutPolicy struct {
	DualAuthThreshold decimal.Decimal
	DelayThreshold    decimal.Decimal
	MaxDailyAmount    decimal.Decimal
	PayoutDelay       time.Duration
	// HoldApprovedUntilDelay keeps an approved payout that also crossed the delay
	// threshold in SCHEDULED until its delay window has elapsed.
	HoldApprovedUntilDelay bool
}

// PayoutService drives payout actions through their lifecycle.
type PayoutService struct {
	log         zerolog.Logger
	actions     ports.SensitiveActionRepository
	authority   ports.AuthorityResolver
	volume      ports.DailyVolumeResolver
	identity    ports.IdentityRepository
	eligibility ports.EligibilityChecker
	otp         ports.OTPChecker
	executor    ports.PayoutExecutor
	notifier    ports.Notifier
	audit       auditor
	metrics     ports.PayoutMetrics
	policy      PayoutPolicy
	now         Clock
}

// PayoutDeps groups the collaborators of PayoutService.
type PayoutDeps struct {
	Actions     ports.SensitiveActionRepository
	Authority   ports.AuthorityResolver
	Volume      ports.DailyVolumeResolver
	Identity    ports.IdentityRepository
	Eligibility ports.EligibilityChecker
	OTP         ports.OTPChecker
	Executor    ports.PayoutExecutor
	Notifier    ports.Notifier
	Audit       ports.AuditLogStore
	Metrics     ports.PayoutMetrics
}

func NewPayoutService(deps PayoutDeps, policy PayoutPolicy, baseLogger *zerolog.Logger) *PayoutService {
	log := baseLogger.With().Str("component", "payout_service").Logger()
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &PayoutService{
		log:         log,
		actions:     deps.Actions,
		authority:   deps.Authority,
		volume:      deps.Volume,
		identity:    deps.Identity,
		eligibility: deps.Eligibility,
		otp:         deps.OTP,
		executor:    deps.Executor,
		notifier:    deps.Notifier,
		audit:       auditor{store: deps.Audit, log: log},
		metrics:     metrics,
		policy:      policy,
		now:         time.Now,
	}
}

func validatePayoutRequest(req domain.PayoutRequest) error {
	if req.OrganizerID == uuid.Nil {
		return domain.Reasonf(domain.ErrValidation, "organizer id is required")
	}
	if req.InitiatedBy == uuid.Nil {
		return domain.Reasonf(domain.ErrValidation, "initiator is required")
	}
	if !req.Amount.IsPositive() {
		return domain.Reasonf(domain.ErrValidation, "amount must be positive")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return domain.Reasonf(domain.ErrValidation, "amount has more than two decimal places")
	}
	if !currencyRegex.MatchString(req.Currency) {
		return domain.Reasonf(domain.ErrValidation, "currency must be a three-letter ISO code")
	}
	return nil
}

// RequestPayout authorizes a payout request and creates the action in the state the
// policy dictates. Any policy violation fails before a record is written.
func (s *PayoutService) RequestPayout(ctx context.Context, req domain.PayoutRequest) (*domain.SensitiveAction, error) {
	log := s.log.With().
		Str("user_id", req.InitiatedBy.String()).
		Str("organizer_id", req.OrganizerID.String()).
		Str("amount", req.Amount.String()).
		Logger()

	if err := validatePayoutRequest(req); err != nil {
		return nil, s.reject(ctx, req, RejectValidation, err)
	}

	// 1. Role authority
	auth, err := s.authority.HasPayoutAuthority(ctx, req.InitiatedBy)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		return nil, s.reject(ctx, req, RejectNotAuthorized, domain.Reasonf(domain.ErrNotAuthorized, "%s", auth.Reason))
	}

	// 2. Profile state
	user, err := s.identity.GetUser(ctx, req.InitiatedBy)
	if err != nil {
		return nil, domain.Persistence("load profile", err)
	}
	if user == nil || !user.CanAct() {
		return nil, s.reject(ctx, req, RejectNotAuthorized, domain.Reasonf(domain.ErrNotAuthorized, "account is inactive or suspended"))
	}

	// 3. Session
	now := s.now()
	valid, err := s.identity.HasValidSession(ctx, req.InitiatedBy, now)
	if err != nil {
		return nil, domain.Persistence("check session", err)
	}
	if !valid {
		return nil, s.reject(ctx, req, RejectSession, domain.Reasonf(domain.ErrAuthenticationRequired, "no valid session"))
	}

	// 4. Daily volume
	committed, err := s.volume.GetDailyCommitted(ctx, req.InitiatedBy, now)
	if err != nil {
		return nil, err
	}
	if !committed.Add(req.Amount).LessThan(s.policy.MaxDailyAmount) {
		return nil, s.reject(ctx, req, RejectDailyLimit, domain.Reasonf(domain.ErrDailyLimitExceeded,
			"%s already committed today, limit %s", committed.StringFixed(2), s.policy.MaxDailyAmount.StringFixed(2)))
	}

	// 5. Destination account
	elig, err := s.eligibility.IsEligibleForPayout(ctx, req.OrganizerID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, s.reject(ctx, req, RejectIneligible, domain.Reasonf(domain.ErrAccountIneligible, "%s", elig.Reason))
	}

	// 6. OTP
	if !req.OTPVerified {
		return nil, s.reject(ctx, req, RejectOTPRequired, domain.ErrOTPRequired)
	}

	// 7. Disposition
	requiresDualAuth := req.Amount.GreaterThanOrEqual(s.policy.DualAuthThreshold)
	requiresDelay := req.Amount.GreaterThanOrEqual(s.policy.DelayThreshold)
	status := domain.Disposition(requiresDualAuth, requiresDelay)

	utcNow := now.UTC()
	dest := elig.AccountID
	meta := domain.PayoutMetadata{
		Version:              domain.PayoutMetadataVersion,
		PaymentMethod:        req.PaymentMethod,
		RequiresDelay:        requiresDelay,
		DestinationAccountID: &dest,
	}
	if requiresDelay {
		scheduledFor := utcNow.Add(s.policy.PayoutDelay)
		meta.ScheduledFor = &scheduledFor
	}

	action := &domain.SensitiveAction{
		ID:               uuid.New(),
		ActionType:       domain.ActionProcessPayout,
		InitiatedBy:      req.InitiatedBy,
		OrganizerID:      req.OrganizerID,
		AmountInvolved:   req.Amount,
		Currency:         req.Currency,
		RequiresApproval: requiresDualAuth,
		OTPVerified:      true,
		Status:           status,
		Metadata:         meta,
		CreatedAt:        utcNow,
		UpdatedAt:        utcNow,
	}

	// 8. Insert under the daily cap
	if err := s.actions.CreateWithinDailyLimit(ctx, action, s.volume.StartOfDay(now), s.policy.MaxDailyAmount); err != nil {
		if errors.Is(err, domain.ErrDailyLimitExceeded) {
			return nil, s.reject(ctx, req, RejectDailyLimit, err)
		}
		log.Error().Err(err).Msg("Failed to create payout action")
		return nil, domain.Persistence("create payout action", err)
	}
	log = log.With().Str("action_id", action.ID.String()).Logger()
	log.Info().Str("status", string(status)).Msg("Payout action created")
	s.metrics.ObserveTransition(status)

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      req.InitiatedBy,
		EventType:    domain.EventPayoutInitiated,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Payout initiated",
		Details: map[string]string{
			"organizer_id":        req.OrganizerID.String(),
			"amount":              req.Amount.StringFixed(2),
			"currency":            req.Currency,
			"status":              string(status),
			"requires_approval":   strconv.FormatBool(requiresDualAuth),
			"requires_delay":      strconv.FormatBool(requiresDelay),
			"destination_account": dest.String(),
		},
		CreatedAt: utcNow,
	})

	// 9. Follow-up per entry state
	switch status {
	case domain.StatusProcessing:
		return s.execute(ctx, action)

	case domain.StatusPendingApproval:
		s.requestApprovals(ctx, action)
		return action, nil

	default:
		s.announceScheduled(ctx, action, req.InitiatedBy)
		return action, nil
	}
}

// ApprovePayout records a second authorized user's approval. Exactly one of several
// concurrent approvals wins the transition out of PENDING_APPROVAL.
func (s *PayoutService) ApprovePayout(ctx context.Context, actionID, approvedBy uuid.UUID, otpCode string) (*domain.SensitiveAction, error) {
	log := s.log.With().Str("action_id", actionID.String()).Str("user_id", approvedBy.String()).Logger()

	action, err := s.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, domain.Persistence("load payout action", err)
	}
	if action == nil {
		return nil, domain.Reasonf(domain.ErrNotFound, "payout %s", actionID)
	}

	if approvedBy == action.InitiatedBy {
		s.approvalFailed(ctx, action, approvedBy, domain.ErrSelfApprovalForbidden)
		return nil, domain.ErrSelfApprovalForbidden
	}

	// Early out so a decided payout does not burn the approver's code. The
	// conditional transition below is still the guard.
	if action.Status != domain.StatusPendingApproval {
		return nil, domain.ErrNotPendingApproval
	}

	if err := s.otp.Verify(ctx, approvedBy, otpCode, domain.PurposePayoutApproval); err != nil {
		s.approvalFailed(ctx, action, approvedBy, err)
		return nil, err
	}

	auth, err := s.authority.HasPayoutAuthority(ctx, approvedBy)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		err := domain.Reasonf(domain.ErrNotAuthorized, "%s", auth.Reason)
		s.approvalFailed(ctx, action, approvedBy, err)
		return nil, err
	}

	now := s.now().UTC()
	to := domain.StatusProcessing
	if s.policy.HoldApprovedUntilDelay && action.Metadata.RequiresDelay &&
		action.Metadata.ScheduledFor != nil && now.Before(*action.Metadata.ScheduledFor) {
		to = domain.StatusScheduled
	}

	approved, err := s.actions.Approve(ctx, actionID, approvedBy, now, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to approve payout")
		return nil, domain.Persistence("approve payout", err)
	}
	if approved == nil {
		log.Warn().Msg("Approval lost: payout no longer pending")
		return nil, domain.ErrNotPendingApproval
	}
	log.Info().Str("status", string(to)).Msg("Payout approved")
	s.metrics.ObserveTransition(to)

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      approvedBy,
		EventType:    domain.EventPayoutApproved,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   actionID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Payout approved",
		Details: map[string]string{
			"initiated_by": approved.InitiatedBy.String(),
			"amount":       approved.AmountInvolved.StringFixed(2),
			"next_status":  string(to),
		},
		CreatedAt: now,
	})

	if to == domain.StatusScheduled {
		s.announceScheduled(ctx, approved, approvedBy)
		return approved, nil
	}
	return s.execute(ctx, approved)
}

// CancelPayout rejects a payout that has not started executing.
func (s *PayoutService) CancelPayout(ctx context.Context, actionID, cancelledBy uuid.UUID, note string) (*domain.SensitiveAction, error) {
	log := s.log.With().Str("action_id", actionID.String()).Str("user_id", cancelledBy.String()).Logger()

	action, err := s.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, domain.Persistence("load payout action", err)
	}
	if action == nil {
		return nil, domain.Reasonf(domain.ErrNotFound, "payout %s", actionID)
	}

	auth, err := s.authority.HasPayoutAuthority(ctx, cancelledBy)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		return nil, domain.Reasonf(domain.ErrNotAuthorized, "%s", auth.Reason)
	}

	now := s.now().UTC()
	cancelled, err := s.actions.Cancel(ctx, actionID, cancelledBy, now)
	if err != nil {
		return nil, domain.Persistence("cancel payout", err)
	}
	if cancelled == nil {
		return nil, domain.Reasonf(domain.ErrNotCancellable, "payout is %s", action.Status)
	}
	log.Info().Msg("Payout cancelled")
	s.metrics.ObserveTransition(domain.StatusFailed)

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      cancelledBy,
		EventType:    domain.EventPayoutCancelled,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   actionID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Payout cancelled",
		Details: map[string]string{
			"previous_status": string(action.Status),
			"note":            note,
		},
		CreatedAt: now,
	})
	notify(ctx, s.notifier, s.log, ports.NotifyPayoutCancelled, cancelled.InitiatedBy, map[string]string{
		"action_id": actionID.String(),
		"amount":    cancelled.AmountInvolved.StringFixed(2),
		"currency":  cancelled.Currency,
	})
	return cancelled, nil
}

// ProcessScheduled claims one due scheduled payout and executes it.
func (s *PayoutService) ProcessScheduled(ctx context.Context, actionID uuid.UUID) (*domain.SensitiveAction, error) {
	claimed, err := s.actions.ClaimScheduled(ctx, actionID, s.now().UTC())
	if err != nil {
		return nil, domain.Persistence("claim scheduled payout", err)
	}
	if claimed == nil {
		return nil, domain.ErrNotScheduled
	}
	s.metrics.ObserveTransition(domain.StatusProcessing)
	return s.execute(ctx, claimed)
}

// RunDueScheduled claims and executes up to limit due scheduled payouts. It returns
// the number of payouts handed to the executor.
func (s *PayoutService) RunDueScheduled(ctx context.Context, limit int) (int, error) {
	claimed, err := s.actions.ClaimDueScheduled(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, domain.Persistence("claim due payouts", err)
	}
	for _, action := range claimed {
		s.metrics.ObserveTransition(domain.StatusProcessing)
		if _, err := s.execute(ctx, action); err != nil {
			s.log.Warn().Err(err).Str("action_id", action.ID.String()).Msg("Scheduled payout did not complete")
		}
	}
	return len(claimed), nil
}

// ListPendingApprovals lists payouts awaiting approval that userID may approve.
func (s *PayoutService) ListPendingApprovals(ctx context.Context, userID uuid.UUID, page domain.Page) ([]*domain.SensitiveAction, error) {
	auth, err := s.authority.HasPayoutAuthority(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		return nil, domain.Reasonf(domain.ErrNotAuthorized, "%s", auth.Reason)
	}
	actions, err := s.actions.ListPendingApprovals(ctx, userID, page.Normalize())
	if err != nil {
		return nil, domain.Persistence("list pending approvals", err)
	}
	return actions, nil
}

// GetAction returns a payout visible to viewer: its initiator or any user with
// payout authority.
func (s *PayoutService) GetAction(ctx context.Context, actionID, viewer uuid.UUID) (*domain.SensitiveAction, error) {
	action, err := s.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, domain.Persistence("load payout action", err)
	}
	if action == nil {
		return nil, domain.Reasonf(domain.ErrNotFound, "payout %s", actionID)
	}
	if action.InitiatedBy == viewer {
		return action, nil
	}
	auth, err := s.authority.HasPayoutAuthority(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if !auth.Authorized {
		return nil, domain.Reasonf(domain.ErrNotFound, "payout %s", actionID)
	}
	return action, nil
}

// execute hands a PROCESSING action to the executor and records the outcome. The
// destination is re-resolved because the bank account may have changed since the
// request was made.
func (s *PayoutService) execute(ctx context.Context, action *domain.SensitiveAction) (*domain.SensitiveAction, error) {
	log := s.log.With().Str("action_id", action.ID.String()).Logger()

	elig, err := s.eligibility.IsEligibleForPayout(ctx, action.OrganizerID)
	if err != nil {
		log.Error().Err(err).Msg("Eligibility re-check failed")
		return s.fail(ctx, action, "eligibility check failed", err)
	}
	if !elig.Eligible {
		log.Warn().Str("reason", elig.Reason).Msg("Destination no longer eligible")
		return s.fail(ctx, action, elig.Reason, domain.Reasonf(domain.ErrAccountIneligible, "%s", elig.Reason))
	}

	result, err := s.executor.Execute(ctx, domain.ExecutionRequest{
		ActionID:             action.ID,
		OrganizerID:          action.OrganizerID,
		Amount:               action.AmountInvolved,
		Currency:             action.Currency,
		DestinationAccountID: elig.AccountID,
		PaymentMethod:        action.Metadata.PaymentMethod,
	})
	if err != nil || !result.Success {
		reason := result.Error
		if err != nil {
			reason = err.Error()
		}
		if reason == "" {
			reason = "executor reported failure"
		}
		log.Warn().Str("reason", reason).Msg("Payout execution failed")
		return s.fail(ctx, action, reason, &domain.ExecutorError{Reason: reason})
	}

	now := s.now().UTC()
	completed, err := s.actions.Complete(ctx, action.ID, result.Reference, now)
	if err != nil {
		log.Error().Err(err).Str("reference", result.Reference).Msg("Payout executed but completion was not recorded")
		return nil, domain.Persistence("complete payout", err)
	}
	if completed == nil {
		log.Error().Str("reference", result.Reference).Msg("Payout executed but action left processing")
		return nil, domain.Reasonf(domain.ErrPersistence, "payout %s was not in processing", action.ID)
	}
	log.Info().Str("reference", result.Reference).Msg("Payout completed")
	s.metrics.ObserveTransition(domain.StatusCompleted)

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      action.InitiatedBy,
		EventType:    domain.EventPayoutCompleted,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Payout completed",
		Details: map[string]string{
			"amount":              action.AmountInvolved.StringFixed(2),
			"currency":            action.Currency,
			"reference":           result.Reference,
			"destination_account": elig.AccountID.String(),
		},
		CreatedAt: now,
	})
	notify(ctx, s.notifier, s.log, ports.NotifyPayoutCompleted, action.InitiatedBy, map[string]string{
		"action_id": action.ID.String(),
		"amount":    action.AmountInvolved.StringFixed(2),
		"currency":  action.Currency,
		"reference": result.Reference,
	})
	return completed, nil
}

// fail moves a PROCESSING action to FAILED and returns cause alongside it.
func (s *PayoutService) fail(ctx context.Context, action *domain.SensitiveAction, reason string, cause error) (*domain.SensitiveAction, error) {
	now := s.now().UTC()
	failed, err := s.actions.Fail(ctx, action.ID, reason, now)
	if err != nil {
		s.log.Error().Err(err).Str("action_id", action.ID.String()).Msg("Failed to record payout failure")
		return nil, domain.Persistence("fail payout", err)
	}
	if failed == nil {
		return nil, domain.Reasonf(domain.ErrPersistence, "payout %s was not in processing", action.ID)
	}
	s.metrics.ObserveTransition(domain.StatusFailed)

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      action.InitiatedBy,
		EventType:    domain.EventPayoutFailed,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Payout failed",
		Details: map[string]string{
			"amount":   action.AmountInvolved.StringFixed(2),
			"currency": action.Currency,
			"error":    reason,
		},
		CreatedAt: now,
	})
	notify(ctx, s.notifier, s.log, ports.NotifyPayoutFailed, action.InitiatedBy, map[string]string{
		"action_id": action.ID.String(),
		"amount":    action.AmountInvolved.StringFixed(2),
		"currency":  action.Currency,
		"error":     reason,
	})
	return failed, cause
}

func (s *PayoutService) requestApprovals(ctx context.Context, action *domain.SensitiveAction) {
	approvers, err := s.authority.ListApprovers(ctx, action.InitiatedBy)
	if err != nil {
		s.log.Warn().Err(err).Str("action_id", action.ID.String()).Msg("Could not list approvers")
		return
	}
	payload := map[string]string{
		"action_id":    action.ID.String(),
		"amount":       action.AmountInvolved.StringFixed(2),
		"currency":     action.Currency,
		"initiated_by": action.InitiatedBy.String(),
	}
	for _, approver := range approvers {
		notify(ctx, s.notifier, s.log, ports.NotifyPayoutApprovalRequired, approver, payload)
	}

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      action.InitiatedBy,
		EventType:    domain.EventPayoutApprovalRequested,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Payout approval requested",
		Details:      map[string]string{"approvers_notified": strconv.Itoa(len(approvers))},
		CreatedAt:    action.CreatedAt,
	})
}

func (s *PayoutService) announceScheduled(ctx context.Context, action *domain.SensitiveAction, actor uuid.UUID) {
	scheduledFor := ""
	if action.Metadata.ScheduledFor != nil {
		scheduledFor = action.Metadata.ScheduledFor.Format(time.RFC3339)
	}
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      actor,
		EventType:    domain.EventPayoutScheduled,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Payout scheduled",
		Details:      map[string]string{"scheduled_for": scheduledFor},
		CreatedAt:    s.now().UTC(),
	})
	notify(ctx, s.notifier, s.log, ports.NotifyPayoutScheduled, action.InitiatedBy, map[string]string{
		"action_id":     action.ID.String(),
		"amount":        action.AmountInvolved.StringFixed(2),
		"currency":      action.Currency,
		"scheduled_for": scheduledFor,
	})
}

func (s *PayoutService) reject(ctx context.Context, req domain.PayoutRequest, kind string, err error) error {
	s.log.Info().Str("user_id", req.InitiatedBy.String()).Str("reason", kind).Err(err).Msg("Payout request rejected")
	s.metrics.ObserveRejection(kind)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      req.InitiatedBy,
		EventType:    domain.EventPayoutRejected,
		Category:     domain.CategoryFinance,
		ResourceType: "organizer",
		ResourceID:   req.OrganizerID,
		RiskLevel:    domain.RiskMedium,
		Description:  "Payout request rejected",
		Details: map[string]string{
			"amount": req.Amount.String(),
			"reason": err.Error(),
		},
		CreatedAt: s.now().UTC(),
	})
	return err
}

func (s *PayoutService) approvalFailed(ctx context.Context, action *domain.SensitiveAction, approver uuid.UUID, err error) {
	s.log.Warn().Err(err).Str("action_id", action.ID.String()).Str("user_id", approver.String()).Msg("Payout approval refused")
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      approver,
		EventType:    domain.EventPayoutApprovalFailed,
		Category:     domain.CategoryFinance,
		ResourceType: "sensitive_action",
		ResourceID:   action.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "Payout approval refused",
		Details:      map[string]string{"reason": err.Error()},
		CreatedAt:    s.now().UTC(),
	})
}
