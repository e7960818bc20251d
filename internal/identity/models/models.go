// Package models holds the identity aggregate persisted by the identity
// stores. The password hash lives here and nowhere else; callers outside the
// identity service only ever see it as an opaque string.
package models

import (
	"time"

	"carehub/pkg/domain"
)

// Identity is the authentication identity, the root of the registration saga.
// It is created first and deleted last on compensation so profile rows can
// never dangle.
type Identity struct {
	ID            domain.IdentityID    `gorm:"type:uuid;primaryKey"`
	Email         string               `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash  string               `gorm:"type:text;not null"`
	DisplayName   string               `gorm:"type:varchar(255);not null"`
	Phone         string               `gorm:"type:varchar(32)"`
	Role          domain.Role          `gorm:"type:varchar(32);not null"`
	Status        domain.AccountStatus `gorm:"type:varchar(32);not null;index"`
	EmailVerified bool                 `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName keeps the table name singular-free and explicit.
func (Identity) TableName() string { return "identities" }

// Session is an issued sign-in session. Redis is the system of record in
// production; the struct is JSON-encoded into the session key.
type Session struct {
	ID         domain.SessionID  `json:"id"`
	IdentityID domain.IdentityID `json:"identity_id"`
	Role       domain.Role       `json:"role"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewIdentity is the input for identity creation.
type NewIdentity struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        domain.Role
	Status      domain.AccountStatus
}
