package dto

import (
	"time"

	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// RegisterRequest is the body of POST /api/auth/register and POST /api/users
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ToInput converts the request into service input
func (r RegisterRequest) ToInput() services.RegisterInput {
	return services.RegisterInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     models.Role(r.Role),
	}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the partial body of PUT /api/users/:id
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ToInput converts the request into service input
func (r UpdateUserRequest) ToInput() services.UpdateUserInput {
	return services.UpdateUserInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
	}
}

// UserDTO represents a user in API responses. The password hash is never included.
type UserDTO struct {
	ID           string      `json:"_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	TaskCount    *int64      `json:"taskCount,omitempty"`
	PendingCount *int64      `json:"pendingCount,omitempty"`
}

// IdentityDTO is the public projection returned by register and login
type IdentityDTO struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// UserListResponse is the body of GET /api/users
type UserListResponse struct {
	Success    bool      `json:"success"`
	Users      []UserDTO `json:"users"`
	TotalPages int       `json:"totalPages"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserListDTOs converts directory entries, merging task counts when present
func ToUserListDTOs(items []services.UserListItem) []UserDTO {
	dtos := make([]UserDTO, len(items))
	for i, item := range items {
		dtos[i] = ToUserDTO(item.User)
		if item.Counts != nil {
			total, pending := item.Counts.Total, item.Counts.Pending
			dtos[i].TaskCount = &total
			dtos[i].PendingCount = &pending
		}
	}
	return dtos
}

// ToIdentityDTO converts a token identity
func ToIdentityDTO(identity auth.Identity) IdentityDTO {
	return IdentityDTO{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
		Role:  identity.Role,
	}
}

// ToRegisteredDTO projects a newly stored user
func ToRegisteredDTO(user models.User) IdentityDTO {
	return IdentityDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
