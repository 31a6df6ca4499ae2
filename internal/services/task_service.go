package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/attachments"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/cache"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
	"github.com/yukikurage/taskdesk-api/internal/utils"
)

const statsCacheKey = "tasks:stats"

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	attachments *attachments.Manager
	cache       *cache.Cache
	aiService   *AIService
	log         logrus.FieldLogger
}

// NewTaskService creates a new TaskService. statsCache and aiService may be nil.
func NewTaskService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	attachmentManager *attachments.Manager,
	statsCache *cache.Cache,
	aiService *AIService,
	log logrus.FieldLogger,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		attachments: attachmentManager,
		cache:       statsCache,
		aiService:   aiService,
		log:         log,
	}
}

// UserRef is the expanded projection of a referenced user.
type UserRef struct {
	ID    string
	Name  string
	Email string
}

// TaskDetail is a task with its user references expanded. References to
// users that no longer exist are dropped.
type TaskDetail struct {
	Task       models.Task
	AssignedTo []UserRef
	CreatedBy  *UserRef
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Identity     auth.Identity
	Status       models.TaskStatus
	Priority     models.TaskPriority
	DueDateOrder string
	Page         int
	PageSize     int
}

// ListTasks returns one page of the tasks visible to the caller
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]TaskDetail, int64, error) {
	filter := repository.TaskFilter{
		DueDateOrder: input.DueDateOrder,
		Page:         input.Page,
		PageSize:     input.PageSize,
	}
	if !input.Identity.IsAdmin() {
		id := input.Identity.ID
		filter.VisibleTo = &id
	}
	if input.Status != "" {
		filter.Status = &input.Status
	}
	if input.Priority != "" {
		filter.Priority = &input.Priority
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	details, err := s.expand(ctx, tasks)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// Authorize loads a task for a caller. Tasks outside the caller's
// visibility scope are reported as not found.
func (s *TaskService) Authorize(ctx context.Context, identity auth.Identity, taskID string) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() && !task.VisibleTo(identity.ID) {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// GetTask returns a task with its references expanded
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*TaskDetail, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	details, err := s.expand(ctx, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DocumentInput is an attachment reported by the client after an upload.
// ID is empty for new attachments.
type DocumentInput struct {
	ID               string
	SecureURL        string
	PublicID         string
	OriginalFilename string
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	DueDate     *time.Time
	AssignedTo  []string
	Documents   []DocumentInput
}

// CreateTask creates a task on behalf of identity. Non-admins with no
// assignees are assigned to the task themselves; admins must name at least
// one assignee.
func (s *TaskService) CreateTask(ctx context.Context, identity auth.Identity, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalidInput("Title is required")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidInput("Invalid priority %q", priority)
	}

	assignedTo := cleanIDs(input.AssignedTo)
	if len(assignedTo) == 0 {
		if identity.IsAdmin() {
			return nil, invalidInput("Assign this task at least one user.")
		}
		assignedTo = []string{identity.ID}
	}
	if err := s.ensureUsersExist(ctx, assignedTo); err != nil {
		return nil, err
	}

	docs, err := buildDocuments(input.Documents)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          models.NewID(),
		Title:       title,
		Description: input.Description,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedRole: identity.Role,
	}
	if !identity.IsAdmin() {
		creator := identity.ID
		task.CreatedByID = &creator
	}
	task.SetAssignees(assignedTo)
	task.SetDocuments(docs)

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidateStats(ctx)
	return task, nil
}

// UpdateTaskInput is a merge patch. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	AssignedTo   *[]string
	Documents    *[]DocumentInput
}

// UpdateTask applies a merge patch to a task
func (s *TaskService) UpdateTask(ctx context.Context, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, invalidInput("Title cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalidInput("Invalid status %q", *input.Status)
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, invalidInput("Invalid priority %q", *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssignedTo != nil {
		assignedTo := cleanIDs(*input.AssignedTo)
		if len(assignedTo) == 0 {
			return nil, invalidInput("Assign this task at least one user.")
		}
		if err := s.ensureUsersExist(ctx, assignedTo); err != nil {
			return nil, err
		}
		task.SetAssignees(assignedTo)
	}
	if input.Documents != nil {
		docs, err := buildDocuments(*input.Documents)
		if err != nil {
			return nil, err
		}
		task.SetDocuments(docs)
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidateStats(ctx)
	return task, nil
}

// MarkCompleted sets the task status to completed. Calling it again is a no-op.
func (s *TaskService) MarkCompleted(ctx context.Context, taskID string) error {
	if _, err := s.findTask(ctx, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.UpdateStatus(ctx, taskID, models.TaskStatusCompleted); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to complete task: %w", err)
	}

	s.invalidateStats(ctx)
	return nil
}

// DeleteTask deletes every remote attachment and then the task record.
// Remote failures are reported, not fatal.
func (s *TaskService) DeleteTask(ctx context.Context, identity auth.Identity, taskID string) (attachments.Report, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return attachments.Report{}, err
	}
	if !identity.IsAdmin() && !task.IsCreatedBy(identity.ID) {
		return attachments.Report{}, ErrNotTaskCreator
	}

	report, err := s.attachments.Cascade(task.OrderedDocuments()...).Run(ctx, func(ctx context.Context) error {
		return s.taskRepo.Delete(ctx, task.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report, ErrTaskNotFound
		}
		return report, fmt.Errorf("failed to delete task: %w", err)
	}

	if !report.OK() {
		s.log.WithFields(logrus.Fields{
			"task_id": task.ID,
			"failed":  len(report.Failed),
		}).Warn("Task deleted with remote attachments left behind")
	}

	s.invalidateStats(ctx)
	return report, nil
}

// DeleteAttachment removes one document from a task, deleting the remote
// object first.
func (s *TaskService) DeleteAttachment(ctx context.Context, taskID, documentID string) (attachments.Report, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return attachments.Report{}, err
	}

	doc, ok := task.RemoveDocument(documentID)
	if !ok {
		return attachments.Report{}, ErrDocumentNotFound
	}

	report, err := s.attachments.Cascade(doc).Run(ctx, func(ctx context.Context) error {
		return s.taskRepo.Update(ctx, task)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report, ErrTaskNotFound
		}
		return report, fmt.Errorf("failed to remove file: %w", err)
	}
	return report, nil
}

// TaskStats holds the global counters shown on the dashboard
type TaskStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalTasks     int64 `json:"totalTasks"`
	PendingTasks   int64 `json:"pendingTasks"`
	CompletedTasks int64 `json:"completedTasks"`
}

// Stats returns the global counters, served from the cache when present
func (s *TaskService) Stats(ctx context.Context) (*TaskStats, error) {
	var stats TaskStats
	found, err := s.cache.Get(ctx, statsCacheKey, &stats)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read stats cache")
	}
	if found {
		return &stats, nil
	}

	if stats.TotalUsers, err = s.userRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalTasks, err = s.taskRepo.Count(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	pending := models.TaskStatusPending
	if stats.PendingTasks, err = s.taskRepo.Count(ctx, &pending); err != nil {
		return nil, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	completed := models.TaskStatusCompleted
	if stats.CompletedTasks, err = s.taskRepo.Count(ctx, &completed); err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	if err := s.cache.Set(ctx, statsCacheKey, stats); err != nil {
		s.log.WithError(err).Warn("Failed to write stats cache")
	}
	return &stats, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks uses AI to suggest tasks from free text. Nothing is stored.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, invalidInput("Text is required")
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.TaskPriorityMedium
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

func (s *TaskService) findTask(ctx context.Context, taskID string) (*models.Task, error) {
	if err := validateID(taskID, "task"); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// expand resolves every user referenced by tasks with a single lookup.
func (s *TaskService) expand(ctx context.Context, tasks []models.Task) ([]TaskDetail, error) {
	var ids []string
	for _, t := range tasks {
		ids = append(ids, t.AssigneeIDs()...)
		if t.CreatedByID != nil {
			ids = append(ids, *t.CreatedByID)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load task users: %w", err)
	}
	byID := make(map[string]UserRef, len(users))
	for _, u := range users {
		byID[u.ID] = UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	}

	details := make([]TaskDetail, len(tasks))
	for i, t := range tasks {
		details[i] = TaskDetail{Task: t, AssignedTo: []UserRef{}}
		for _, id := range t.AssigneeIDs() {
			if ref, ok := byID[id]; ok {
				details[i].AssignedTo = append(details[i].AssignedTo, ref)
			}
		}
		if t.CreatedByID != nil {
			if ref, ok := byID[*t.CreatedByID]; ok {
				details[i].CreatedBy = &ref
			}
		}
	}
	return details, nil
}

// ensureUsersExist rejects assignee lists naming unknown users.
func (s *TaskService) ensureUsersExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if !models.IsValidID(id) {
			return invalidInput("Invalid user ID %q in assignedTo", id)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to verify assignees: %w", err)
	}
	if len(users) != len(ids) {
		return invalidInput("One or more assigned users do not exist")
	}
	return nil
}

func (s *TaskService) invalidateStats(ctx context.Context) {
	dropCachedStats(ctx, s.cache, s.log)
}

// dropCachedStats evicts the stats entry after any user or task write.
func dropCachedStats(ctx context.Context, statsCache *cache.Cache, log logrus.FieldLogger) {
	if err := statsCache.Delete(ctx, statsCacheKey); err != nil {
		log.WithError(err).Warn("Failed to invalidate stats cache")
	}
}

// cleanIDs trims ids, drops blanks and removes duplicates keeping order.
func cleanIDs(ids []string) []string {
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	return utils.UniqueStrings(trimmed)
}

func buildDocuments(inputs []DocumentInput) ([]models.TaskDocument, error) {
	if err := attachments.CheckLimit(len(inputs)); err != nil {
		return nil, invalidInput("A task can have at most %d documents", constants.MaxTaskDocuments)
	}

	seen := make(map[string]struct{}, len(inputs))
	docs := make([]models.TaskDocument, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.SecureURL) == "" {
			return nil, invalidInput("Document secure_url is required")
		}
		id := in.ID
		if _, dup := seen[id]; dup || !models.IsValidID(id) {
			id = models.NewID()
		}
		seen[id] = struct{}{}
		docs[i] = models.TaskDocument{
			ID:               id,
			SecureURL:        in.SecureURL,
			PublicID:         in.PublicID,
			OriginalFilename: in.OriginalFilename,
		}
	}
	return docs, nil
}
