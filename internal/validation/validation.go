// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"socialnet/internal/models"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit in bytes
	MaxBioLength      = 500
	MaxPostLength     = 2000
	MaxMessageLength  = 4000
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}

	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}

	// Cannot start or end with underscore/hyphen
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCategories rejects unknown tags and returns the de-duplicated set.
func ValidateCategories(categories []string) (models.StringSet, error) {
	out := models.NewStringSet()
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if !models.IsCategory(c) {
			return nil, fmt.Errorf("unknown category %q", c)
		}
		out = out.Add(c)
	}
	return out, nil
}

// ValidateText trims s and checks it is non-empty and at most max runes.
func ValidateText(field, s string, maxLen int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", field)
	}
	if utf8.RuneCountInString(s) > maxLen {
		return "", fmt.Errorf("%s must not exceed %d characters", field, maxLen)
	}
	return s, nil
}

// ValidateBio allows an empty bio but caps its length.
func ValidateBio(bio string) (string, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return "", fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	return bio, nil
}
