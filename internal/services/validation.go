package services

import (
	"regexp"
	"strings"

	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalidInput("Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < constants.MinPasswordLength {
		return invalidInput("Password must be at least %d characters long", constants.MinPasswordLength)
	}
	return nil
}

func validateRole(role models.Role) error {
	if !role.Valid() {
		return invalidInput("Role must be either 'user' or 'admin'")
	}
	return nil
}

func validateID(id, what string) error {
	if !models.IsValidID(id) {
		return invalidInput("Invalid %s ID", what)
	}
	return nil
}
