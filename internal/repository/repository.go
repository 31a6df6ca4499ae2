package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/taskdesk-api/internal/models"
)

var (
	// ErrNotFound is returned by every store when a record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("repository: duplicate key")
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task along with its assignees and documents
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with assignees and documents loaded
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves tasks with filtering, sorting and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update replaces the task's fields, assignees and documents
	Update(ctx context.Context, task *models.Task) error

	// UpdateStatus sets the status of a task
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error

	// Delete removes a task record
	Delete(ctx context.Context, id string) error

	// Count counts tasks, optionally restricted to one status
	Count(ctx context.Context, status *models.TaskStatus) (int64, error)

	// CountAssignedByUsers groups tasks by assignee for the given users in a
	// single aggregate query. Users without tasks are absent from the map.
	CountAssignedByUsers(ctx context.Context, userIDs []string) (map[string]AssignmentCount, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// VisibleTo restricts results to tasks created by or assigned to this
	// user. Nil means no restriction.
	VisibleTo    *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDateOrder string
	Page         int
	PageSize     int
}

// Offset returns the number of records to skip.
func (f TaskFilter) Offset() int {
	return offset(f.Page, f.PageSize)
}

// AssignmentCount is the per-user result of CountAssignedByUsers.
type AssignmentCount struct {
	Total   int64
	Pending int64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by (lowercased) email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIDs loads every existing user among ids, in no particular order
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)

	// List retrieves users matching the search filter with pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Update saves name, email, password hash and role
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user, drops them from task assignee lists and
	// clears createdBy on tasks they created
	Delete(ctx context.Context, id string) error

	// Count counts all users
	Count(ctx context.Context) (int64, error)
}

// UserFilter holds search and pagination options for listing users
type UserFilter struct {
	Query    string
	Page     int
	PageSize int
}

// Offset returns the number of records to skip.
func (f UserFilter) Offset() int {
	return offset(f.Page, f.PageSize)
}

func offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
