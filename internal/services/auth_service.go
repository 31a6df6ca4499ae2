package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/cache"
	"github.com/yukikurage/taskdesk-api/internal/config"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
)

// AuthService handles registration and login.
type AuthService struct {
	userRepo      repository.UserRepository
	hasher        *auth.PasswordHasher
	cache         *cache.Cache
	log           logrus.FieldLogger
	adminEmail    string
	adminPassword string
}

// NewAuthService creates a new AuthService. The admin credential pair is
// read from cfg once. statsCache may be nil.
func NewAuthService(userRepo repository.UserRepository, hasher *auth.PasswordHasher, statsCache *cache.Cache, log logrus.FieldLogger, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		hasher:        hasher,
		cache:         statsCache,
		log:           log,
		adminEmail:    cfg.DefaultAdminEmail,
		adminPassword: cfg.DefaultAdminPassword,
	}
}

// RegisterInput represents the information needed to create a user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Register validates the input and stores a new user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := createUser(ctx, s.userRepo, s.hasher, input)
	if err != nil {
		return nil, err
	}
	dropCachedStats(ctx, s.cache, s.log)
	return user, nil
}

// LoginInput holds the credentials and the role the caller signs in as.
type LoginInput struct {
	Email    string
	Password string
	Role     models.Role
}

// Login authenticates either the configured administrator or a stored user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (auth.Principal, error) {
	switch input.Role {
	case models.RoleAdmin:
		return s.loginAdmin(input)
	case models.RoleUser:
		return s.loginUser(ctx, input)
	}
	return nil, invalidInput("Role must be either 'admin' or 'user'")
}

func (s *AuthService) loginAdmin(input LoginInput) (auth.Principal, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(input.Email), []byte(s.adminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(s.adminPassword)) == 1
	if !emailOK || !passwordOK {
		return nil, ErrInvalidAdminLogin
	}
	return auth.AdminPrincipal{Email: input.Email}, nil
}

func (s *AuthService) loginUser(ctx context.Context, input LoginInput) (auth.Principal, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return auth.UserPrincipal{User: user}, nil
}

// createUser is shared by self-service registration and admin user creation.
func createUser(ctx context.Context, users repository.UserRepository, hasher *auth.PasswordHasher, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, invalidInput("Name, email, and password are required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if err := validateRole(input.Role); err != nil {
		return nil, err
	}

	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           models.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}
