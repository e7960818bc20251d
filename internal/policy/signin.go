package policy

import (
	"carehub/internal/identity/lifecycle"
	"carehub/internal/identity/models"
	dErrors "carehub/pkg/domain-errors"
)

// SignInPolicy is one named gate in the ordered sign-in chain. The identity
// service runs the chain top to bottom and returns the first denial.
type SignInPolicy struct {
	Name  string
	Check func(identity *models.Identity) error
}

// SignInChain returns the ordered gates evaluated before a session is issued.
// Chain denials outrank a bad-credential result so a suspended account with a
// wrong password still reads as suspended, not as a typo.
func (p *Policy) SignInChain() []SignInPolicy {
	return []SignInPolicy{
		{
			Name: "allowed-domain",
			Check: func(identity *models.Identity) error {
				if !p.AllowedEmailDomain(identity.Email) {
					return dErrors.New(dErrors.CodeSignInDenied, "email domain is no longer permitted").
						WithReason(dErrors.DenyAccountDisabled)
				}
				return nil
			},
		},
		{
			Name: "account-status",
			Check: func(identity *models.Identity) error {
				return lifecycle.CanSignIn(identity.Status)
			},
		},
	}
}
