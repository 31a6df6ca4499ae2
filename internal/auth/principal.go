package auth

import (
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
)

// Principal is the result of a successful login. There is exactly one
// administrator, configured out-of-band, and any number of stored users.
type Principal interface {
	Identity() Identity
}

// AdminPrincipal is the configured administrator. It has no store record.
type AdminPrincipal struct {
	Email string
}

// Identity returns the sentinel admin identity.
func (p AdminPrincipal) Identity() Identity {
	return Identity{
		ID:    constants.AdminSentinelID,
		Name:  constants.AdminSentinelName,
		Email: p.Email,
		Role:  models.RoleAdmin,
	}
}

// UserPrincipal is a user loaded from the credential store.
type UserPrincipal struct {
	User *models.User
}

// Identity returns the token identity of the stored user. Stored users
// always sign in with the user role.
func (p UserPrincipal) Identity() Identity {
	return Identity{
		ID:    p.User.ID,
		Name:  p.User.Name,
		Email: p.User.Email,
		Role:  models.RoleUser,
	}
}
