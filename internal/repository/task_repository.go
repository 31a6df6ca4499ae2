package repository

import (
	"context"

	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/database"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task; assignees and documents are inserted with it
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translateGormError(r.db.WithContext(ctx).Create(task).Error)
}

// FindByID finds a task by ID with assignees and documents loaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("tasks.id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &task, nil
}

// List retrieves tasks with filtering, sorting and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&models.Task{})

	if filter.VisibleTo != nil {
		assignedSubQuery := db.Model(&models.TaskAssignee{}).
			Select("1").
			Where("task_assignees.task_id = tasks.id").
			Where("task_assignees.user_id = ?", *filter.VisibleTo)
		query = query.Where("(tasks.created_by_id = ? OR EXISTS (?))", *filter.VisibleTo, assignedSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	switch filter.DueDateOrder {
	case constants.SortAsc:
		listQuery = listQuery.Order("tasks.due_date ASC")
	case constants.SortDesc:
		listQuery = listQuery.Order("tasks.due_date DESC")
	}
	// Tie-breakers keep page boundaries stable.
	listQuery = listQuery.Order("tasks.created_at ASC").Order("tasks.id ASC")

	listQuery = listQuery.Scopes(database.Paginate(filter.Offset(), filter.PageSize))

	var tasks []models.Task
	if err := r.withRelations(listQuery).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update replaces the task row and its child rows in one transaction. It
// never inserts: a task that no longer exists yields ErrNotFound.
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(task).Select("*").Omit(clause.Associations).Updates(task)
		if err := requireTaskRow(tx, task.ID, result); err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		if len(task.Assignees) > 0 {
			if err := tx.Create(&task.Assignees).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskDocument{}).Error; err != nil {
			return err
		}
		if len(task.Documents) > 0 {
			if err := tx.Create(&task.Documents).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateStatus sets the status column only
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.Task{}).
		Where("id = ?", id).
		Update("status", status)
	return requireTaskRow(db, id, result)
}

// requireTaskRow maps an UPDATE that touched no row to ErrNotFound. MySQL
// reports unchanged rows as unaffected, so a zero count is confirmed with a
// lookup before failing.
func requireTaskRow(db *gorm.DB, id string, result *gorm.DB) error {
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the task and its child rows
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskDocument{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Count counts tasks, optionally restricted to one status
func (r *GormTaskRepository) Count(ctx context.Context, status *models.TaskStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

type assignmentCountRow struct {
	UserID  string
	Total   int64
	Pending int64
}

// CountAssignedByUsers counts total and pending assigned tasks per user
func (r *GormTaskRepository) CountAssignedByUsers(ctx context.Context, userIDs []string) (map[string]AssignmentCount, error) {
	counts := make(map[string]AssignmentCount, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []assignmentCountRow
	err := r.db.WithContext(ctx).
		Table("task_assignees").
		Select("task_assignees.user_id AS user_id, COUNT(*) AS total, SUM(CASE WHEN tasks.status = ? THEN 1 ELSE 0 END) AS pending", models.TaskStatusPending).
		Joins("JOIN tasks ON tasks.id = task_assignees.task_id").
		Where("task_assignees.user_id IN ?", userIDs).
		Group("task_assignees.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.UserID] = AssignmentCount{Total: row.Total, Pending: row.Pending}
	}
	return counts, nil
}

func (r *GormTaskRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Assignees", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_assignees.position ASC")
		}).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_documents.position ASC")
		})
}
