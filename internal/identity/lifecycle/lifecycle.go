// Package lifecycle is the account status state machine. It owns which
// statuses exist, which transitions are legal, and the sign-in gate the
// identity service consults before issuing a session.
//
// The package is pure: it reads fields off an identity snapshot and returns
// decisions. Persistence of the status column stays with the identity stores.
package lifecycle

import (
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
)

// Event names a lifecycle trigger.
type Event string

const (
	EventVerifyEmail Event = "verify_email"
	EventApprove     Event = "approve"
	EventSuspend     Event = "suspend"
	EventReinstate   Event = "reinstate"
	EventDeactivate  Event = "deactivate"
)

// InitialStatus returns the status a freshly created identity starts in.
// Providers always need admin approval; whether they first need email
// verification depends on the deployment toggle.
func InitialStatus(role domain.Role, emailVerificationEnabled bool) domain.AccountStatus {
	switch role {
	case domain.RoleProvider:
		if emailVerificationEnabled {
			return domain.StatusPendingVerification
		}
		return domain.StatusPendingApproval
	case domain.RoleAdmin:
		return domain.StatusActive
	default:
		if emailVerificationEnabled {
			return domain.StatusPendingVerification
		}
		return domain.StatusActive
	}
}

// Next computes the status an identity moves to when event fires. It returns
// an invalid_state error when the transition is not legal from the current
// status, so approval can never skip verification for provider accounts.
func Next(role domain.Role, current domain.AccountStatus, event Event) (domain.AccountStatus, error) {
	switch event {
	case EventVerifyEmail:
		if current != domain.StatusPendingVerification {
			return "", illegal(current, event)
		}
		if role == domain.RoleProvider {
			return domain.StatusPendingApproval, nil
		}
		return domain.StatusActive, nil

	case EventApprove:
		// Approval only applies to providers and only after verification.
		if role != domain.RoleProvider {
			return "", dErrors.New(dErrors.CodeInvalidState, "only provider accounts require approval")
		}
		if current != domain.StatusPendingApproval {
			return "", illegal(current, event)
		}
		return domain.StatusActive, nil

	case EventSuspend:
		if current != domain.StatusActive {
			return "", illegal(current, event)
		}
		return domain.StatusSuspended, nil

	case EventReinstate:
		if current != domain.StatusSuspended {
			return "", illegal(current, event)
		}
		return domain.StatusActive, nil

	case EventDeactivate:
		if current != domain.StatusActive && current != domain.StatusSuspended {
			return "", illegal(current, event)
		}
		return domain.StatusInactive, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidState, "unknown lifecycle event %q", event)
}

// CanTransition reports whether event is legal from current for role.
func CanTransition(role domain.Role, current domain.AccountStatus, event Event) bool {
	_, err := Next(role, current, event)
	return err == nil
}

// CanSignIn is the pre-sign-in gate. A nil return means the account may
// proceed to the credential check; otherwise the typed denial tells the
// caller exactly why the account is unusable even with correct credentials.
func CanSignIn(status domain.AccountStatus) error {
	switch status {
	case domain.StatusActive:
		return nil
	case domain.StatusPendingVerification:
		return dErrors.New(dErrors.CodeSignInDenied, "email address not yet verified").
			WithReason(dErrors.DenyEmailNotVerified)
	case domain.StatusPendingApproval:
		return dErrors.New(dErrors.CodeSignInDenied, "account pending administrator approval").
			WithReason(dErrors.DenyPendingApproval)
	case domain.StatusSuspended, domain.StatusInactive:
		return dErrors.New(dErrors.CodeSignInDenied, "account is disabled").
			WithReason(dErrors.DenyAccountDisabled)
	}
	return dErrors.Newf(dErrors.CodeInvalidState, "unknown account status %q", status)
}

func illegal(current domain.AccountStatus, event Event) error {
	return dErrors.Newf(dErrors.CodeInvalidState, "cannot %s from status %s", event, current)
}
