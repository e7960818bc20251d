package service

import (
	"context"
	"errors"

	"carehub/internal/audit"
	"carehub/internal/identity/models"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/email"
	"carehub/pkg/platform/sentinel"
	"carehub/pkg/requestcontext"
)

// SignInResult is a successful authentication: the persisted session and the
// signed access token that references it.
type SignInResult struct {
	Token    string
	Session  models.Session
	Identity *models.Identity
}

// fakeHash is verified against when the email has no identity, so the lookup
// miss costs the same as a wrong password.
const fakeHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$tt4fZK1qkGZgZakEIGuO0wVTDkHVbI1p5hkKn8BttRY"

var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

// Authenticate checks credentials and the account gate, then issues a session.
//
// The sign-in policy chain runs before the credential result is surfaced:
// an account that could not sign in anyway reports its typed denial rather
// than a credential error, so the caller can route the user to the
// verification or approval flow.
func (s *Service) Authenticate(ctx context.Context, addr, password string) (*SignInResult, error) {
	key := email.Normalize(addr)
	if s.lockout != nil {
		if err := s.lockout.Check(key, requestcontext.Now(ctx)); err != nil {
			s.recordSignInFailure(ctx, "", "locked out")
			return nil, err
		}
	}

	identity, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn the same hashing work before denying.
			_, _ = verifyPassword(password, fakeHash)
			s.failedAttempt(ctx, key)
			s.recordSignInFailure(ctx, "", "unknown email")
			return nil, errBadCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	match, err := verifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "credential verification failed")
	}

	for _, gate := range s.policy.SignInChain() {
		if err := gate.Check(identity); err != nil {
			s.denied(ctx, identity, gate.Name, err)
			return nil, err
		}
	}

	if !match {
		s.failedAttempt(ctx, key)
		s.recordSignInFailure(ctx, identity.ID.String(), "wrong password")
		return nil, errBadCredentials
	}
	if s.lockout != nil {
		s.lockout.Reset(key)
	}

	now := requestcontext.Now(ctx)
	session := models.Session{
		ID:         domain.NewSessionID(),
		IdentityID: identity.ID,
		Role:       identity.Role,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session persistence failed")
	}

	signed, err := s.tokens.Generate(identity.ID, session.ID, identity.Role, s.cfg.SessionTTL)
	if err != nil {
		// Roll the session back so the store does not accumulate sessions no
		// token ever referenced.
		if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
			s.logger.WarnContext(ctx, "orphan session cleanup failed",
				"session_id", session.ID, "error", delErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token generation failed")
	}

	if s.metrics != nil {
		s.metrics.SignInSuccess.Inc()
	}
	s.record(ctx, audit.Event{
		IdentityID: identity.ID.String(),
		Action:     audit.ActionSignInSuccess,
		Outcome:    "success",
	})
	s.logger.InfoContext(ctx, "sign-in succeeded",
		"identity_id", identity.ID, "session_id", session.ID)

	return &SignInResult{Token: signed, Session: session, Identity: identity}, nil
}

// SignOut revokes one session. Unknown sessions are treated as already
// signed out.
func (s *Service) SignOut(ctx context.Context, sessionID domain.SessionID) error {
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrExpired) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session delete failed")
	}

	s.record(ctx, audit.Event{
		IdentityID: requestcontext.IdentityID(ctx).String(),
		Action:     audit.ActionSignOut,
	})
	return nil
}

// ValidateToken verifies the access token and checks its session is still
// live, so revocation takes effect before the JWT expires.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	sessionID, err := domain.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session reference")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session is no longer valid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}
	return session, nil
}

func (s *Service) denied(ctx context.Context, identity *models.Identity, gate string, err error) {
	reason := dErrors.ReasonOf(err)
	if s.metrics != nil {
		s.metrics.SignInDenied.WithLabelValues(string(reason)).Inc()
	}
	s.record(ctx, audit.Event{
		IdentityID: identity.ID.String(),
		Action:     audit.ActionSignInDenied,
		Outcome:    gate,
		Reason:     string(reason),
	})
	s.logger.InfoContext(ctx, "sign-in denied",
		"identity_id", identity.ID, "gate", gate, "reason", string(reason))
}

func (s *Service) failedAttempt(ctx context.Context, key string) {
	if s.lockout != nil {
		s.lockout.RecordFailure(key, requestcontext.Now(ctx))
	}
}

func (s *Service) recordSignInFailure(ctx context.Context, identityID, reason string) {
	s.record(ctx, audit.Event{
		IdentityID: identityID,
		Action:     audit.ActionSignInFailed,
		Reason:     reason,
	})
}
