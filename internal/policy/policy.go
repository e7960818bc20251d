// Package policy holds the account policy checks shared by the registration
// saga and the identity provider's sign-in path. Keeping them here means the
// rules hold even for callers that bypass the saga.
package policy

import (
	"context"
	"strings"

	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/email"
)

// EmailLookup answers whether a personal email already has an identity.
type EmailLookup interface {
	EmailInUse(ctx context.Context, email string) (bool, error)
}

// BusinessEmailLookup answers whether a business email already has a profile.
type BusinessEmailLookup interface {
	BusinessEmailInUse(ctx context.Context, email string) (bool, error)
}

// Policy evaluates account rules against configured inputs. Construct once at
// startup; the allow-list is never re-read from the environment.
type Policy struct {
	allowedDomains []string
	identities     EmailLookup
	profiles       BusinessEmailLookup
}

// New builds a Policy. An empty allow-list permits every domain.
func New(allowedDomains []string, identities EmailLookup, profiles BusinessEmailLookup) *Policy {
	normalized := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		if trimmed := strings.ToLower(strings.TrimSpace(d)); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return &Policy{
		allowedDomains: normalized,
		identities:     identities,
		profiles:       profiles,
	}
}

// AllowedEmailDomain reports whether the address's domain is on the
// allow-list. Subdomains of an allowed domain are accepted.
func (p *Policy) AllowedEmailDomain(addr string) bool {
	if len(p.allowedDomains) == 0 {
		return true
	}
	domain := email.Domain(addr)
	if domain == "" {
		return false
	}
	for _, allowed := range p.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}

// CheckEmailAvailable is the pre-flight uniqueness guard for personal emails.
// The store's unique constraint remains the ultimate arbiter; this exists so
// the saga fails fast before any identity or upload work begins.
func (p *Policy) CheckEmailAvailable(ctx context.Context, addr string) error {
	inUse, err := p.identities.EmailInUse(ctx, email.Normalize(addr))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "email availability check failed")
	}
	if inUse {
		return dErrors.New(dErrors.CodeDuplicateEmail, "email already in use").WithField("email")
	}
	return nil
}

// CheckBusinessEmailAvailable is the pre-flight uniqueness guard for business
// emails.
func (p *Policy) CheckBusinessEmailAvailable(ctx context.Context, addr string) error {
	inUse, err := p.profiles.BusinessEmailInUse(ctx, email.Normalize(addr))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "business email availability check failed")
	}
	if inUse {
		return dErrors.New(dErrors.CodeDuplicateEmail, "business email already in use").WithField("businessEmail")
	}
	return nil
}

// NormalizeDisplayName trims the name, collapses repeated whitespace and
// title-cases each word. Pure, no I/O.
func NormalizeDisplayName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		if len(runes) > 0 {
			upper := []rune(strings.ToUpper(string(runes[0])))
			runes[0] = upper[0]
		}
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
