// Package registration orchestrates provider onboarding as a compensating
// transaction across the identity provider, object storage, and the
// relational store. Any failure after the identity exists rolls the attempt
// back so no orphaned identity, blob, or profile row survives.
package registration

import "io"

// Upload is one file submitted with the registration form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ServiceInput is one offered service from the form.
type ServiceInput struct {
	Name        string
	Description string
	PriceRange  string
}

// ScheduleInput is one weekday of the operating schedule. The form submits
// all seven days; closed days carry no times.
type ScheduleInput struct {
	DayOfWeek int
	IsOpen    bool
	OpenTime  string
	CloseTime string
}

// Request is the complete provider registration form.
type Request struct {
	// Account holder.
	Email           string
	Password        string
	ConfirmPassword string
	DisplayName     string
	Phone           string

	// Business.
	BusinessName  string
	ProviderType  string
	Description   string
	BusinessEmail string
	BusinessPhone string
	Address       string
	City          string
	Country       string
	Latitude      float64
	Longitude     float64

	PermitNumber  string
	LicenseNumber string

	Services []ServiceInput
	Schedule []ScheduleInput

	// PermitDocument and Banner are required. LicenseDocument travels with
	// LicenseNumber when the provider has one. GalleryImages are optional
	// and never fail the attempt.
	PermitDocument  *Upload
	Banner          *Upload
	LicenseDocument *Upload
	GalleryImages   []*Upload
}
