package database

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns []string
}

// listIndexes back the task list filters and the per-assignee aggregate.
var listIndexes = []index{
	{"tasks", "idx_tasks_status_priority", []string{"status", "priority"}},
	{"tasks", "idx_tasks_due_date_created_at", []string{"due_date", "created_at"}},
	{"task_assignees", "idx_task_assignees_user_task", []string{"user_id", "task_id"}},
	{"users", "idx_users_created_at", []string{"created_at"}},
}

// AddIndexes adds the composite indexes AutoMigrate does not declare
func AddIndexes(db *gorm.DB, log logrus.FieldLogger) error {
	migrator := db.Migrator()

	for _, idx := range listIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(logrus.Fields{
			"index": idx.name,
			"table": idx.table,
		}).Info("Created index")
	}

	return nil
}
