package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string       `gorm:"type:varchar(36);primarykey" json:"_id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(10);not null;default:'medium';index" json:"priority"`
	DueDate     *time.Time   `gorm:"index" json:"dueDate"`
	CreatedRole Role         `gorm:"type:varchar(20);not null" json:"createdRole"`
	CreatedByID *string      `gorm:"type:varchar(36);index" json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	// Relations
	Assignees []TaskAssignee `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Documents []TaskDocument `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"documents"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

// AssigneeIDs returns the assigned user ids in assignment order.
func (t *Task) AssigneeIDs() []string {
	assignees := make([]TaskAssignee, len(t.Assignees))
	copy(assignees, t.Assignees)
	sort.SliceStable(assignees, func(i, j int) bool {
		return assignees[i].Position < assignees[j].Position
	})

	ids := make([]string, len(assignees))
	for i, a := range assignees {
		ids[i] = a.UserID
	}
	return ids
}

// SetAssignees replaces the assignee list, keeping the given order.
func (t *Task) SetAssignees(userIDs []string) {
	t.Assignees = make([]TaskAssignee, len(userIDs))
	for i, id := range userIDs {
		t.Assignees[i] = TaskAssignee{TaskID: t.ID, UserID: id, Position: i}
	}
}

// IsAssigned reports whether userID is among the assignees.
func (t *Task) IsAssigned(userID string) bool {
	for _, a := range t.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// IsCreatedBy reports whether userID created the task.
func (t *Task) IsCreatedBy(userID string) bool {
	return t.CreatedByID != nil && *t.CreatedByID == userID
}

// VisibleTo reports whether a non-admin user may see the task.
func (t *Task) VisibleTo(userID string) bool {
	return t.IsCreatedBy(userID) || t.IsAssigned(userID)
}

// SetDocuments replaces the attachment list, keeping the given order.
func (t *Task) SetDocuments(docs []TaskDocument) {
	t.Documents = make([]TaskDocument, len(docs))
	for i, d := range docs {
		d.TaskID = t.ID
		d.Position = i
		t.Documents[i] = d
	}
}

// OrderedDocuments returns the attachments in upload order.
func (t *Task) OrderedDocuments() []TaskDocument {
	docs := make([]TaskDocument, len(t.Documents))
	copy(docs, t.Documents)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Position < docs[j].Position
	})
	return docs
}

// RemoveDocument drops the attachment with the given id and returns it.
func (t *Task) RemoveDocument(documentID string) (TaskDocument, bool) {
	docs := t.OrderedDocuments()
	for i, d := range docs {
		if d.ID == documentID {
			t.SetDocuments(append(docs[:i:i], docs[i+1:]...))
			return d, true
		}
	}
	return TaskDocument{}, false
}
