// Package provider holds the provider profile aggregate: the profile row and
// its dependent documents, services, and weekly operating schedule. The whole
// graph is created in one transaction by the registration flow; it is never
// partially persisted.
package provider

import (
	"time"

	"gorm.io/datatypes"

	"carehub/pkg/domain"
)

// Profile is the business profile attached 1:1 to a provider identity. The
// profile cannot outlive the identity: the saga deletes the identity last on
// compensation precisely so this reference never dangles.
type Profile struct {
	ID         domain.ProfileID     `gorm:"type:uuid;primaryKey"`
	IdentityID domain.IdentityID    `gorm:"type:uuid;not null;uniqueIndex"`
	Status     domain.ProfileStatus `gorm:"type:varchar(16);not null;index"`

	BusinessName  string              `gorm:"type:varchar(255);not null"`
	ProviderType  domain.ProviderType `gorm:"type:varchar(32);not null"`
	Description   string              `gorm:"type:text"`
	BusinessEmail string              `gorm:"type:varchar(255);not null;uniqueIndex"`
	BusinessPhone string              `gorm:"type:varchar(32)"`

	Address   string  `gorm:"type:varchar(255)"`
	City      string  `gorm:"type:varchar(128)"`
	Country   string  `gorm:"type:varchar(128)"`
	Latitude  float64 `gorm:"type:double precision"`
	Longitude float64 `gorm:"type:double precision"`

	// BannerURL is the storage reference of the required banner image;
	// Images is the ordered list of optional gallery image URLs.
	BannerURL string         `gorm:"type:text"`
	Images    datatypes.JSON `gorm:"type:jsonb"`

	Documents []Document      `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	Services  []Service       `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	Schedule  []ScheduleEntry `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (Profile) TableName() string { return "provider_profiles" }

// Document is a verification document. It attaches to the profile; the
// identity ID is recorded as well because some documents (a government ID)
// verify the person rather than the business.
type Document struct {
	ID         domain.DocumentID     `gorm:"type:uuid;primaryKey"`
	ProfileID  domain.ProfileID      `gorm:"type:uuid;not null;index"`
	IdentityID domain.IdentityID     `gorm:"type:uuid;not null;index"`
	Type       domain.DocumentType   `gorm:"type:varchar(32);not null"`
	Status     domain.DocumentStatus `gorm:"type:varchar(16);not null"`

	// StorageRef is the object path inside the documents bucket; Identifier
	// is the free-text number on the document (permit or license number).
	StorageRef string `gorm:"type:text;not null"`
	PublicURL  string `gorm:"type:text"`
	Identifier string `gorm:"type:varchar(128)"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (Document) TableName() string { return "provider_documents" }

// Service is one offered service.
type Service struct {
	ID          domain.ServiceID `gorm:"type:uuid;primaryKey"`
	ProfileID   domain.ProfileID `gorm:"type:uuid;not null;index"`
	Name        string           `gorm:"type:varchar(255);not null"`
	Description string           `gorm:"type:text"`
	PriceRange  string           `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (Service) TableName() string { return "provider_services" }

// ScheduleEntry is one day of the weekly operating schedule. Every profile
// carries exactly seven, one per day of week.
type ScheduleEntry struct {
	ID        domain.ScheduleID `gorm:"type:uuid;primaryKey"`
	ProfileID domain.ProfileID  `gorm:"type:uuid;not null;uniqueIndex:idx_schedule_profile_day"`
	DayOfWeek int               `gorm:"not null;uniqueIndex:idx_schedule_profile_day"`
	IsOpen    bool              `gorm:"not null"`
	OpenTime  string            `gorm:"type:varchar(8)"`
	CloseTime string            `gorm:"type:varchar(8)"`
}

// TableName pins the table name.
func (ScheduleEntry) TableName() string { return "provider_schedules" }

// Graph is the full aggregate handed to CreateProfileGraph. The store assigns
// nothing; IDs and foreign keys are expected to be populated by the caller.
type Graph struct {
	Profile   Profile
	Documents []Document
	Services  []Service
	Schedule  []ScheduleEntry
}
