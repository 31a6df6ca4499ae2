package models

// TaskAssignee links a task to one assigned user. Position keeps the
// assignment order stable across reads.
type TaskAssignee struct {
	TaskID   string `gorm:"type:varchar(36);primarykey" json:"task_id"`
	UserID   string `gorm:"type:varchar(36);primarykey;index" json:"user_id"`
	Position int    `gorm:"not null;default:0" json:"-"`
}
