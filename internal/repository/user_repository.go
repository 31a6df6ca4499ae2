package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/yukikurage/taskdesk-api/internal/database"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translateGormError(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &user, nil
}

// FindByIDs loads all users among ids in one query
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	ids = utils.UniqueStrings(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List retrieves users whose name or email contains the query, case-insensitively
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where("(LOWER(users.name) LIKE ? ESCAPE '!' OR LOWER(users.email) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("users.created_at ASC").Order("users.id ASC")
	listQuery = listQuery.Scopes(database.Paginate(filter.Offset(), filter.PageSize))

	var users []models.User
	if err := listQuery.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update saves the mutable user fields
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":          user.Name,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          user.Role,
		})
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	return nil
}

// Delete removes the user and clears every reference to them in a transaction
func (r *GormUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Task{}).
			Where("created_by_id = ?", id).
			Update("created_by_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Count counts all users
func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// translateGormError maps driver-specific errors onto repository errors.
func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	}
	return err
}

// escapeLike escapes LIKE wildcards using '!' as the escape character, which
// every supported dialect accepts without extra quoting rules.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
