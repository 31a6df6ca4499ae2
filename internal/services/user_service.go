package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/cache"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
)

// UserService implements the admin user directory and profile updates.
type UserService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	hasher   *auth.PasswordHasher
	cache    *cache.Cache
	log      logrus.FieldLogger
}

// NewUserService creates a new UserService. statsCache may be nil.
func NewUserService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, hasher *auth.PasswordHasher, statsCache *cache.Cache, log logrus.FieldLogger) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		hasher:   hasher,
		cache:    statsCache,
		log:      log,
	}
}

// ListUsersInput represents search and pagination options for the directory.
type ListUsersInput struct {
	Query             string
	Page              int
	PageSize          int
	IncludeTaskCounts bool
}

// UserListItem is a directory entry. Counts is nil unless task counts were requested.
type UserListItem struct {
	User   models.User
	Counts *repository.AssignmentCount
}

// ListUsers searches users and optionally joins per-user assigned-task counts
// computed by one aggregate query for the whole page.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]UserListItem, int64, error) {
	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Query:    input.Query,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	items := make([]UserListItem, len(users))
	for i, u := range users {
		items[i] = UserListItem{User: u}
	}
	if !input.IncludeTaskCounts || len(users) == 0 {
		return items, total, nil
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	counts, err := s.taskRepo.CountAssignedByUsers(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count assigned tasks: %w", err)
	}

	for i := range items {
		count := counts[items[i].User.ID]
		items[i].Counts = &count
	}
	return items, total, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateUser creates a user on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := createUser(ctx, s.userRepo, s.hasher, input)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return user, nil
}

// UpdateUserInput is a partial profile update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateUser applies a partial update. Only the user themself or an admin
// may update a profile. A password shorter than the minimum is ignored.
func (s *UserService) UpdateUser(ctx context.Context, actor auth.Identity, id string, input UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, ErrNotProfileOwner
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			user.Name = name
		}
	}

	if input.Email != nil {
		if email := normalizeEmail(*input.Email); email != "" && email != user.Email {
			if err := validateEmail(email); err != nil {
				return nil, err
			}
			if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil && existing.ID != user.ID {
				return nil, ErrEmailTaken
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}

	if input.Password != nil && len(*input.Password) >= constants.MinPasswordLength {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeleteUser removes a user. Their task assignments are dropped and tasks
// they created keep a null creator.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *UserService) invalidateStats(ctx context.Context) {
	dropCachedStats(ctx, s.cache, s.log)
}
