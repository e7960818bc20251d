// Package service is the identity provider: account creation, credential
// checks, session issuance, and lifecycle transitions. It is the only code
// that touches password hashes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"

	"carehub/internal/audit"
	"carehub/internal/identity/lifecycle"
	"carehub/internal/identity/lockout"
	"carehub/internal/identity/models"
	"carehub/internal/notify"
	"carehub/internal/platform/metrics"
	"carehub/internal/policy"
	"carehub/internal/token"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
	"carehub/pkg/requestcontext"
)

// UserStore is what the service needs from identity persistence.
type UserStore interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id domain.IdentityID) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	Update(ctx context.Context, id domain.IdentityID, mutate func(*models.Identity) error) (*models.Identity, error)
	Delete(ctx context.Context, id domain.IdentityID) error
	EmailInUse(ctx context.Context, email string) (bool, error)
}

// SessionStore is what the service needs from session persistence.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
	DeleteByIdentity(ctx context.Context, identityID domain.IdentityID) error
}

// Config carries the account policy knobs the service enforces.
type Config struct {
	SessionTTL               time.Duration
	PasswordMinLength        int
	PasswordMaxLength        int
	EmailVerificationEnabled bool
}

// Service implements identity operations over pluggable stores.
type Service struct {
	users    UserStore
	sessions SessionStore
	policy   *policy.Policy
	tokens   *token.Service
	metrics  *metrics.Metrics
	audit    *audit.Recorder
	notify   *notify.Dispatcher
	lockout  *lockout.Limiter
	logger   *slog.Logger
	cfg      Config
}

// Option tweaks optional service collaborators.
type Option func(*Service)

// WithLockout throttles repeated failed sign-ins per account.
func WithLockout(l *lockout.Limiter) Option {
	return func(s *Service) { s.lockout = l }
}

// New wires an identity service. Metrics, audit and notify may be nil; the
// service then skips those side effects.
func New(
	users UserStore,
	sessions SessionStore,
	pol *policy.Policy,
	tokens *token.Service,
	m *metrics.Metrics,
	rec *audit.Recorder,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	svc := &Service{
		users:    users,
		sessions: sessions,
		policy:   pol,
		tokens:   tokens,
		metrics:  m,
		audit:    rec,
		notify:   dispatcher,
		logger:   logger,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create registers a new identity. The caller decides the role; the initial
// account status comes from the lifecycle rules unless the input pins one.
func (s *Service) Create(ctx context.Context, input models.NewIdentity) (*models.Identity, error) {
	addr := email.Normalize(input.Email)
	if !govalidator.IsEmail(addr) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid email address").WithField("email")
	}
	if !s.policy.AllowedEmailDomain(addr) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email domain is not permitted").WithField("email")
	}
	if l := len(input.Password); l < s.cfg.PasswordMinLength || l > s.cfg.PasswordMaxLength {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"password must be between %d and %d characters",
			s.cfg.PasswordMinLength, s.cfg.PasswordMaxLength).WithField("password")
	}
	if err := s.policy.CheckEmailAvailable(ctx, addr); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "password hashing failed")
	}

	status := input.Status
	if status == "" {
		status = lifecycle.InitialStatus(input.Role, s.cfg.EmailVerificationEnabled)
	}

	now := requestcontext.Now(ctx)
	identity := &models.Identity{
		ID:           domain.NewIdentityID(),
		Email:        addr,
		PasswordHash: hash,
		DisplayName:  policy.NormalizeDisplayName(input.DisplayName),
		Phone:        input.Phone,
		Role:         input.Role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if identity.DisplayName == "" {
		identity.DisplayName = email.DeriveNameFromEmail(addr)
	}

	if err := s.users.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeDuplicateEmail, "email already in use").WithField("email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeIdentityCreation, "identity creation failed")
	}

	s.logger.InfoContext(ctx, "identity created",
		"identity_id", identity.ID, "role", identity.Role, "status", identity.Status)

	if identity.Status == domain.StatusPendingVerification {
		s.send(notify.VerifyEmail(identity.Email, identity.DisplayName))
	}

	return identity, nil
}

// Get loads one identity.
func (s *Service) Get(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	identity, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}
	return identity, nil
}

// Delete removes an identity and revokes its sessions. The registration saga
// calls this during compensation; session cleanup failure does not block the
// identity delete.
func (s *Service) Delete(ctx context.Context, id domain.IdentityID) error {
	if err := s.sessions.DeleteByIdentity(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "session cleanup failed during identity delete",
			"identity_id", id, "error", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity delete failed")
	}
	return nil
}

// VerifyEmail marks the address verified and advances the lifecycle: end
// users become ACTIVE, providers move on to PENDING_APPROVAL.
func (s *Service) VerifyEmail(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	updated, err := s.transition(ctx, id, lifecycle.EventVerifyEmail, func(identity *models.Identity) {
		identity.EmailVerified = true
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{
		IdentityID: updated.ID.String(),
		Action:     audit.ActionEmailVerified,
		Outcome:    string(updated.Status),
	})
	if updated.Status == domain.StatusActive {
		s.send(notify.Welcome(updated.Email, updated.DisplayName))
	}
	return updated, nil
}

// Approve activates a provider account awaiting review. Fails invalid_state
// when the account has not verified its email yet.
func (s *Service) Approve(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	updated, err := s.transition(ctx, id, lifecycle.EventApprove, nil)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{
		IdentityID: updated.ID.String(),
		ActorID:    requestcontext.IdentityID(ctx).String(),
		Action:     audit.ActionAccountApproved,
		Outcome:    string(updated.Status),
	})
	s.send(notify.AccountApproved(updated.Email, updated.DisplayName))
	return updated, nil
}

// Suspend disables an active account and revokes its live sessions.
func (s *Service) Suspend(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	updated, err := s.transition(ctx, id, lifecycle.EventSuspend, nil)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteByIdentity(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "session revocation failed after suspension",
			"identity_id", id, "error", err)
	}

	s.record(ctx, audit.Event{
		IdentityID: updated.ID.String(),
		ActorID:    requestcontext.IdentityID(ctx).String(),
		Action:     audit.ActionAccountSuspended,
	})
	s.send(notify.AccountSuspended(updated.Email))
	return updated, nil
}

// Reinstate re-activates a suspended account.
func (s *Service) Reinstate(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	updated, err := s.transition(ctx, id, lifecycle.EventReinstate, nil)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{
		IdentityID: updated.ID.String(),
		ActorID:    requestcontext.IdentityID(ctx).String(),
		Action:     audit.ActionAccountReinstated,
	})
	return updated, nil
}

// Deactivate retires an account permanently and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, id domain.IdentityID) (*models.Identity, error) {
	updated, err := s.transition(ctx, id, lifecycle.EventDeactivate, nil)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteByIdentity(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "session revocation failed after deactivation",
			"identity_id", id, "error", err)
	}

	s.record(ctx, audit.Event{
		IdentityID: updated.ID.String(),
		ActorID:    requestcontext.IdentityID(ctx).String(),
		Action:     audit.ActionAccountDeactivated,
	})
	return updated, nil
}

// transition applies one lifecycle event inside the store's atomic update so
// the legality check reads the row it is about to write.
func (s *Service) transition(
	ctx context.Context,
	id domain.IdentityID,
	event lifecycle.Event,
	also func(*models.Identity),
) (*models.Identity, error) {
	updated, err := s.users.Update(ctx, id, func(identity *models.Identity) error {
		next, err := lifecycle.Next(identity.Role, identity.Status, event)
		if err != nil {
			return err
		}
		identity.Status = next
		identity.UpdatedAt = requestcontext.Now(ctx)
		if also != nil {
			also(identity)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lifecycle update failed")
	}
	return updated, nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Record(ctx, event)
	}
}

func (s *Service) send(msg notify.Message) {
	if s.notify != nil {
		s.notify.Enqueue(msg)
	}
}
