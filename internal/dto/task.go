package dto

import (
	"time"

	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// DocumentRequest is an attachment in a create or update payload
type DocumentRequest struct {
	ID               string `json:"_id"`
	SecureURL        string `json:"secure_url"`
	PublicID         string `json:"public_id"`
	OriginalFilename string `json:"original_filename"`
}

// CreateTaskRequest is the body of POST /api/tasks. Creator fields are
// taken from the session, never from the body.
type CreateTaskRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Priority    string            `json:"priority"`
	DueDate     OptionalDate      `json:"dueDate"`
	AssignedTo  []string          `json:"assignedTo"`
	Documents   []DocumentRequest `json:"documents"`
}

// ToInput converts the request into service input
func (r CreateTaskRequest) ToInput() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    models.TaskPriority(r.Priority),
		DueDate:     r.DueDate.Time,
		AssignedTo:  r.AssignedTo,
		Documents:   toDocumentInputs(r.Documents),
	}
}

// UpdateTaskRequest is the merge-patch body of PUT /api/tasks/:id
type UpdateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *string            `json:"status"`
	Priority    *string            `json:"priority"`
	DueDate     OptionalDate       `json:"dueDate"`
	AssignedTo  *[]string          `json:"assignedTo"`
	Documents   *[]DocumentRequest `json:"documents"`
}

// ToInput converts the request into service input
func (r UpdateTaskRequest) ToInput() services.UpdateTaskInput {
	input := services.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
	}
	if r.Status != nil {
		status := models.TaskStatus(*r.Status)
		input.Status = &status
	}
	if r.Priority != nil {
		priority := models.TaskPriority(*r.Priority)
		input.Priority = &priority
	}
	if r.DueDate.Set {
		input.DueDate = r.DueDate.Time
		input.ClearDueDate = r.DueDate.Time == nil
	}
	if r.Documents != nil {
		docs := toDocumentInputs(*r.Documents)
		input.Documents = &docs
	}
	return input
}

// GenerateTasksRequest is the body of POST /api/tasks/generate
type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required"`
}

func toDocumentInputs(docs []DocumentRequest) []services.DocumentInput {
	inputs := make([]services.DocumentInput, len(docs))
	for i, d := range docs {
		inputs[i] = services.DocumentInput{
			ID:               d.ID,
			SecureURL:        d.SecureURL,
			PublicID:         d.PublicID,
			OriginalFilename: d.OriginalFilename,
		}
	}
	return inputs
}

// UserRefDTO is an expanded user reference inside a task
type UserRefDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DocumentDTO represents an attachment in API responses
type DocumentDTO struct {
	ID               string `json:"_id"`
	SecureURL        string `json:"secure_url"`
	PublicID         string `json:"public_id"`
	OriginalFilename string `json:"original_filename"`
}

// TaskDTO represents a task with expanded references
type TaskDTO struct {
	ID          string              `json:"_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	AssignedTo  []UserRefDTO        `json:"assignedTo"`
	Documents   []DocumentDTO       `json:"documents"`
	CreatedRole models.Role         `json:"createdRole"`
	CreatedBy   *UserRefDTO         `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// StoredTaskDTO represents a task as stored, with references as ids
type StoredTaskDTO struct {
	ID          string              `json:"_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	AssignedTo  []string            `json:"assignedTo"`
	Documents   []DocumentDTO       `json:"documents"`
	CreatedRole models.Role         `json:"createdRole"`
	CreatedBy   *string             `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// TaskDetailDTO is a single task with only its assignees expanded
type TaskDetailDTO struct {
	StoredTaskDTO
	AssignedTo []UserRefDTO `json:"assignedTo"`
}

// TaskListResponse is the body of GET /api/tasks
type TaskListResponse struct {
	Success    bool      `json:"success"`
	Tasks      []TaskDTO `json:"tasks"`
	TotalPages int       `json:"totalPages"`
}

// ToTaskDTO converts an expanded task. Emails are dropped unless includeEmail is set.
func ToTaskDTO(detail services.TaskDetail, includeEmail bool) TaskDTO {
	task := detail.Task

	assigned := make([]UserRefDTO, len(detail.AssignedTo))
	for i, ref := range detail.AssignedTo {
		assigned[i] = toUserRefDTO(ref, includeEmail)
	}

	var createdBy *UserRefDTO
	if detail.CreatedBy != nil {
		ref := toUserRefDTO(*detail.CreatedBy, includeEmail)
		createdBy = &ref
	}

	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		AssignedTo:  assigned,
		Documents:   toDocumentDTOs(task),
		CreatedRole: task.CreatedRole,
		CreatedBy:   createdBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDetailDTO converts a task for GET /api/tasks/:id. Assignees carry
// id and name; the creator stays a raw id.
func ToTaskDetailDTO(detail services.TaskDetail) TaskDetailDTO {
	assigned := make([]UserRefDTO, len(detail.AssignedTo))
	for i, ref := range detail.AssignedTo {
		assigned[i] = toUserRefDTO(ref, false)
	}
	return TaskDetailDTO{
		StoredTaskDTO: ToStoredTaskDTO(detail.Task),
		AssignedTo:    assigned,
	}
}

// ToTaskDTOs converts a page of expanded tasks
func ToTaskDTOs(details []services.TaskDetail) []TaskDTO {
	dtos := make([]TaskDTO, len(details))
	for i, d := range details {
		dtos[i] = ToTaskDTO(d, true)
	}
	return dtos
}

// ToStoredTaskDTO converts a task without expanding references
func ToStoredTaskDTO(task models.Task) StoredTaskDTO {
	return StoredTaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		AssignedTo:  task.AssigneeIDs(),
		Documents:   toDocumentDTOs(task),
		CreatedRole: task.CreatedRole,
		CreatedBy:   task.CreatedByID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func toUserRefDTO(ref services.UserRef, includeEmail bool) UserRefDTO {
	dto := UserRefDTO{ID: ref.ID, Name: ref.Name}
	if includeEmail {
		dto.Email = ref.Email
	}
	return dto
}

func toDocumentDTOs(task models.Task) []DocumentDTO {
	docs := task.OrderedDocuments()
	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = DocumentDTO{
			ID:               d.ID,
			SecureURL:        d.SecureURL,
			PublicID:         d.PublicID,
			OriginalFilename: d.OriginalFilename,
		}
	}
	return dtos
}
