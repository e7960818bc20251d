// Package domain holds the typed identifiers and closed enums shared by every
// layer. IDs are distinct uuid-backed types so a ProfileID can never be passed
// where an IdentityID is expected.
package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"

	dErrors "carehub/pkg/domain-errors"
)

type (
	// IdentityID identifies an authentication identity (the saga root).
	IdentityID uuid.UUID
	// SessionID identifies an issued sign-in session.
	SessionID uuid.UUID
	// ProfileID identifies a provider profile.
	ProfileID uuid.UUID
	// DocumentID identifies a verification document row.
	DocumentID uuid.UUID
	// ServiceID identifies an offered service row.
	ServiceID uuid.UUID
	// ScheduleID identifies an operating schedule row.
	ScheduleID uuid.UUID
	// AuditID identifies an audit event.
	AuditID uuid.UUID
)

// NewIdentityID mints a random identity ID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewSessionID mints a random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewProfileID mints a random profile ID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewDocumentID mints a random document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewServiceID mints a random service ID.
func NewServiceID() ServiceID { return ServiceID(uuid.New()) }

// NewScheduleID mints a random schedule ID.
func NewScheduleID() ScheduleID { return ScheduleID(uuid.New()) }

// NewAuditID mints a random audit event ID.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id ServiceID) String() string { return uuid.UUID(id).String() }
func (id ScheduleID) String() string { return uuid.UUID(id).String() }
func (id AuditID) String() string { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// driver.Valuer / sql.Scanner implementations so the typed IDs persist as
// native uuid columns through GORM.

func (id IdentityID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *IdentityID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id SessionID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *SessionID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id ProfileID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *ProfileID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id DocumentID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *DocumentID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id ServiceID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *ServiceID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id ScheduleID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *ScheduleID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id AuditID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *AuditID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseIdentityID parses external input into an IdentityID, rejecting the nil
// UUID so "missing" can never masquerade as a valid identifier.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(u), nil
}

// ParseSessionID parses external input into a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseProfileID parses external input into a ProfileID.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid identifier")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier cannot be nil")
	}
	return u, nil
}
