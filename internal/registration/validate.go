package registration

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
)

// validate runs every field and cross-field rule. It has no side effects and
// touches no collaborator; uniqueness pre-flights happen separately so a bad
// form never costs a store round-trip.
func validate(req Request, passwordMin, passwordMax int) error {
	if !govalidator.IsEmail(req.Email) {
		return invalid("email", "a valid email address is required")
	}
	if l := len(req.Password); l < passwordMin || l > passwordMax {
		return invalid("password", "password length is out of bounds")
	}
	if req.Password != req.ConfirmPassword {
		return invalid("confirmPassword", "passwords do not match")
	}

	if strings.TrimSpace(req.BusinessName) == "" {
		return invalid("businessName", "business name is required")
	}
	if _, err := domain.ParseProviderType(req.ProviderType); err != nil {
		return invalid("providerType", "unknown provider type")
	}
	if !govalidator.IsEmail(req.BusinessEmail) {
		return invalid("businessEmail", "a valid business email is required")
	}
	if req.BusinessPhone != "" && !govalidator.Matches(req.BusinessPhone, `^\+?[0-9 ()-]{7,20}$`) {
		return invalid("businessPhone", "business phone looks malformed")
	}

	if req.Latitude < -90 || req.Latitude > 90 {
		return invalid("latitude", "latitude must be within [-90, 90]")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return invalid("longitude", "longitude must be within [-180, 180]")
	}

	if strings.TrimSpace(req.PermitNumber) == "" {
		return invalid("permitNumber", "business permit number is required")
	}
	if req.PermitDocument == nil {
		return invalid("permitDocument", "business permit document is required")
	}
	if req.Banner == nil {
		return invalid("banner", "banner image is required")
	}
	if req.LicenseDocument != nil && strings.TrimSpace(req.LicenseNumber) == "" {
		return invalid("licenseNumber", "license number is required with a license document")
	}

	if len(req.Services) == 0 {
		return invalid("services", "at least one service is required")
	}
	for _, svc := range req.Services {
		if strings.TrimSpace(svc.Name) == "" {
			return invalid("services", "every service needs a name")
		}
	}

	return validateSchedule(req.Schedule)
}

// validateSchedule enforces the weekly shape: seven distinct days, at least
// one open, and open days carrying both times.
func validateSchedule(schedule []ScheduleInput) error {
	if len(schedule) != 7 {
		return invalid("schedule", "schedule must cover all seven days")
	}

	seen := [7]bool{}
	anyOpen := false
	for _, day := range schedule {
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return invalid("schedule", "day of week must be within [0, 6]")
		}
		if seen[day.DayOfWeek] {
			return invalid("schedule", "each day of week may appear only once")
		}
		seen[day.DayOfWeek] = true

		if !day.IsOpen {
			continue
		}
		anyOpen = true
		if !validTime(day.OpenTime) || !validTime(day.CloseTime) {
			return invalid("schedule", "open days need opening and closing times")
		}
	}
	if !anyOpen {
		return invalid("schedule", "at least one day must be open")
	}
	return nil
}

func validTime(t string) bool {
	return govalidator.Matches(t, `^([01][0-9]|2[0-3]):[0-5][0-9]$`)
}

func invalid(field, message string) error {
	return dErrors.New(dErrors.CodeInvalidInput, message).WithField(field)
}
