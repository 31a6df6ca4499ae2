// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/database"
	"github.com/yukikurage/taskdesk-api/internal/logging"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database closed on cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// each connection to :memory: sees its own empty database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, logging.Discard()))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// Hasher returns a fast bcrypt hasher for fixtures.
func Hasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

// CreateUser stores a user with role "user".
func CreateUser(t *testing.T, db *gorm.DB, name, email, password string) models.User {
	t.Helper()

	hash, err := Hasher().Hash(password)
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateTask stores task with its assignees and documents.
func CreateTask(t *testing.T, db *gorm.DB, task *models.Task) {
	t.Helper()

	if task.ID == "" {
		task.ID = models.NewID()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.CreatedRole == "" {
		task.CreatedRole = models.RoleUser
	}
	task.SetAssignees(task.AssigneeIDs())
	task.SetDocuments(task.OrderedDocuments())
	require.NoError(t, db.Create(task).Error)
}
