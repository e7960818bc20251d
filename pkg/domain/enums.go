package domain

import dErrors "carehub/pkg/domain-errors"

// Role is the account role. It is a closed enum: construct via ParseRole at
// trust boundaries so an out-of-range value is unrepresentable downstream.
type Role string

const (
	RoleEndUser  Role = "END_USER"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleEndUser:  true,
	RoleProvider: true,
	RoleAdmin:    true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool  { return validRoles[r] }
func (r Role) String() string { return string(r) }

// AccountStatus is the lifecycle state carried on an identity. Transitions are
// governed by internal/identity/lifecycle; nothing else mutates it directly.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusPendingApproval     AccountStatus = "PENDING_APPROVAL"
	StatusActive              AccountStatus = "ACTIVE"
	StatusSuspended           AccountStatus = "SUSPENDED"
	StatusInactive            AccountStatus = "INACTIVE"
)

var validAccountStatuses = map[AccountStatus]bool{
	StatusPendingVerification: true,
	StatusPendingApproval:     true,
	StatusActive:              true,
	StatusSuspended:           true,
	StatusInactive:            true,
}

// ParseAccountStatus constructs an AccountStatus from external input.
func ParseAccountStatus(s string) (AccountStatus, error) {
	st := AccountStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid account status")
	}
	return st, nil
}

func (s AccountStatus) IsValid() bool  { return validAccountStatuses[s] }
func (s AccountStatus) String() string { return string(s) }

// ProviderType classifies the kind of healthcare business behind a profile.
type ProviderType string

const (
	ProviderHospital   ProviderType = "HOSPITAL"
	ProviderClinic     ProviderType = "CLINIC"
	ProviderPharmacy   ProviderType = "PHARMACY"
	ProviderLaboratory ProviderType = "LABORATORY"
	ProviderHomeCare   ProviderType = "HOME_CARE"
)

var validProviderTypes = map[ProviderType]bool{
	ProviderHospital:   true,
	ProviderClinic:     true,
	ProviderPharmacy:   true,
	ProviderLaboratory: true,
	ProviderHomeCare:   true,
}

// ParseProviderType constructs a ProviderType from external input.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid provider type")
	}
	return p, nil
}

func (p ProviderType) IsValid() bool  { return validProviderTypes[p] }
func (p ProviderType) String() string { return string(p) }

// ProfileStatus is the review state of a provider profile.
type ProfileStatus string

const (
	ProfilePending  ProfileStatus = "PENDING"
	ProfileApproved ProfileStatus = "APPROVED"
	ProfileRejected ProfileStatus = "REJECTED"
)

func (s ProfileStatus) IsValid() bool {
	switch s {
	case ProfilePending, ProfileApproved, ProfileRejected:
		return true
	}
	return false
}

func (s ProfileStatus) String() string { return string(s) }

// DocumentType classifies verification documents. Business permits attach to
// the profile; ID-type documents may attach to the person instead.
type DocumentType string

const (
	DocBusinessPermit      DocumentType = "BUSINESS_PERMIT"
	DocProfessionalLicense DocumentType = "PROFESSIONAL_LICENSE"
	DocGovernmentID        DocumentType = "GOVERNMENT_ID"
)

func (d DocumentType) IsValid() bool {
	switch d {
	case DocBusinessPermit, DocProfessionalLicense, DocGovernmentID:
		return true
	}
	return false
}

func (d DocumentType) String() string { return string(d) }

// DocumentStatus is the review state of a single document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentVerified DocumentStatus = "VERIFIED"
	DocumentRejected DocumentStatus = "REJECTED"
)

func (s DocumentStatus) String() string { return string(s) }
