package repository

import (
	"time"

	"github.com/yukikurage/taskdesk-api/internal/models"
)

// Collection names used by the MongoDB store.
const (
	UsersCollection = "users"
	TasksCollection = "tasks"
)

// userDocument is the stored shape of a user in MongoDB.
type userDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// attachmentDocument is an entry of a task's embedded documents array.
type attachmentDocument struct {
	ID               string `bson:"_id"`
	SecureURL        string `bson:"secure_url"`
	PublicID         string `bson:"public_id"`
	OriginalFilename string `bson:"original_filename"`
}

// taskDocument is the stored shape of a task in MongoDB. Assignees and
// attachments are embedded arrays whose order is the assignment order.
type taskDocument struct {
	ID          string               `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Status      string               `bson:"status"`
	Priority    string               `bson:"priority"`
	DueDate     *time.Time           `bson:"dueDate"`
	AssignedTo  []string             `bson:"assignedTo"`
	Documents   []attachmentDocument `bson:"documents"`
	CreatedRole string               `bson:"createdRole"`
	CreatedBy   *string              `bson:"createdBy"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toUserDocument(u *models.User) userDocument {
	return userDocument{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDocument) toModel() models.User {
	return models.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         models.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toTaskDocument(t *models.Task) taskDocument {
	docs := t.OrderedDocuments()
	attachments := make([]attachmentDocument, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = models.NewID()
		}
		attachments[i] = attachmentDocument{
			ID:               id,
			SecureURL:        d.SecureURL,
			PublicID:         d.PublicID,
			OriginalFilename: d.OriginalFilename,
		}
	}

	assigned := t.AssigneeIDs()
	if assigned == nil {
		assigned = []string{}
	}

	return taskDocument{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		AssignedTo:  assigned,
		Documents:   attachments,
		CreatedRole: string(t.CreatedRole),
		CreatedBy:   t.CreatedByID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toModel() models.Task {
	task := models.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      models.TaskStatus(d.Status),
		Priority:    models.TaskPriority(d.Priority),
		DueDate:     d.DueDate,
		CreatedRole: models.Role(d.CreatedRole),
		CreatedByID: d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	task.SetAssignees(d.AssignedTo)

	docs := make([]models.TaskDocument, len(d.Documents))
	for i, a := range d.Documents {
		docs[i] = models.TaskDocument{
			ID:               a.ID,
			SecureURL:        a.SecureURL,
			PublicID:         a.PublicID,
			OriginalFilename: a.OriginalFilename,
		}
	}
	task.SetDocuments(docs)
	return task
}
