package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address so lookups and uniqueness checks
// compare like with like.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Domain returns the part after the last '@', lowercased. Empty when the
// input does not look like an address.
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// DeriveNameFromEmail guesses a display name from the local part. Used as a
// fallback when registration omits one.
func DeriveNameFromEmail(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User"
	}

	name := capitalize(parts[0])
	if len(parts) > 1 {
		name += " " + capitalize(parts[len(parts)-1])
	}
	return name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
