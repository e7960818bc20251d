package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "carehub-test")
	identityID := domain.NewIdentityID()
	sessionID := domain.NewSessionID()

	tokenString, err := svc.Generate(identityID, sessionID, domain.RoleProvider, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, identityID.String(), claims.IdentityID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "PROVIDER", claims.Role)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", "carehub-test")

	tokenString, err := svc.Generate(domain.NewIdentityID(), domain.NewSessionID(), domain.RoleEndUser, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsForeignKey(t *testing.T) {
	issuer := NewService("key-one", "carehub-test")
	verifier := NewService("key-two", "carehub-test")

	tokenString, err := issuer.Generate(domain.NewIdentityID(), domain.NewSessionID(), domain.RoleEndUser, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(tokenString)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "carehub-test")
	_, err := svc.Validate("not-a-jwt")
	assert.Error(t, err)
}
