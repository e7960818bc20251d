// Package audit records the security-relevant moments of an account's life:
// registration attempts and their compensations, sign-in outcomes, and admin
// status changes. Events are append-only.
package audit

import (
	"time"

	"gorm.io/datatypes"

	"carehub/pkg/domain"
)

// Action names what happened.
type Action string

const (
	ActionRegistrationStarted     Action = "registration.started"
	ActionRegistrationCompleted   Action = "registration.completed"
	ActionRegistrationFailed      Action = "registration.failed"
	ActionRegistrationCompensated Action = "registration.compensated"
	ActionIdentityOrphaned        Action = "registration.identity_orphaned"
	ActionSignInSuccess           Action = "signin.success"
	ActionSignInDenied            Action = "signin.denied"
	ActionSignInFailed            Action = "signin.failed"
	ActionSignOut                 Action = "signin.signout"
	ActionEmailVerified           Action = "account.email_verified"
	ActionAccountApproved         Action = "account.approved"
	ActionAccountSuspended        Action = "account.suspended"
	ActionAccountReinstated       Action = "account.reinstated"
	ActionAccountDeactivated      Action = "account.deactivated"
)

// Event is one audit record. IdentityID is the subject; ActorID is who caused
// the action when that differs (an admin approving a provider, for example).
type Event struct {
	ID         domain.AuditID `gorm:"type:uuid;primaryKey"`
	Timestamp  time.Time      `gorm:"not null;index"`
	IdentityID string         `gorm:"type:varchar(64);index"`
	ActorID    string         `gorm:"type:varchar(64)"`
	Action     Action         `gorm:"type:varchar(64);not null;index"`
	Outcome    string         `gorm:"type:varchar(32)"`
	Reason     string         `gorm:"type:varchar(255)"`
	RequestID  string         `gorm:"type:varchar(64)"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
}

// TableName pins the table name.
func (Event) TableName() string { return "audit_events" }
