package httptransport

import (
	"context"

	"carehub/internal/identity/models"
	"carehub/internal/platform/middleware"
)

// SessionChecker validates a token against the live session store.
type SessionChecker interface {
	ValidateToken(ctx context.Context, tokenString string) (*models.Session, error)
}

// SessionValidator adapts the identity service to the auth middleware, so
// revoked sessions fail authentication even while the JWT is still unexpired.
type SessionValidator struct {
	Identities SessionChecker
}

func (v SessionValidator) ValidateToken(ctx context.Context, tokenString string) (*middleware.TokenClaims, error) {
	session, err := v.Identities.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		IdentityID: session.IdentityID,
		SessionID:  session.ID,
		Role:       session.Role,
	}, nil
}
