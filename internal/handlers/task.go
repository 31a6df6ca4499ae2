package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/dto"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
	"github.com/yukikurage/taskdesk-api/internal/middleware"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/services"
	"github.com/yukikurage/taskdesk-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns one page of the tasks visible to the current user
func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	details, total, err := h.taskService.ListTasks(c.Request.Context(), services.ListTasksInput{
		Identity:     identity,
		Status:       models.TaskStatus(c.Query("status")),
		Priority:     models.TaskPriority(c.Query("priority")),
		DueDateOrder: c.DefaultQuery("dueDateOrder", constants.SortAsc),
		Page:         params.Page,
		PageSize:     params.Limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Success:    true,
		Tasks:      dto.ToTaskDTOs(details),
		TotalPages: utils.TotalPages(total, params.Limit),
	})
}

// GetTask returns a task with its assignees expanded
func (h *TaskHandler) GetTask(c *gin.Context) {
	detail, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    dto.ToTaskDetailDTO(*detail),
	})
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity, req.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Task created successfully.",
		"task":    dto.ToStoredTaskDTO(*task),
	})
}

// UpdateTask applies a merge patch to a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), req.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task updated successfully.",
		"data":    dto.ToStoredTaskDTO(*task),
	})
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	if err := h.taskService.MarkCompleted(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task marked as completed",
	})
}

// DeleteTask deletes a task and its remote files
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	report, err := h.taskService.DeleteTask(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task & files deleted",
		"files":   report,
	})
}

// DeleteFile removes one attachment from a task
func (h *TaskHandler) DeleteFile(c *gin.Context) {
	report, err := h.taskService.DeleteAttachment(c.Request.Context(), c.Param("id"), c.Param("fileId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File deleted",
		"files":   report,
	})
}

// Stats returns the global counters
func (h *TaskHandler) Stats(c *gin.Context) {
	stats, err := h.taskService.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// GenerateTasks suggests tasks from free text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, &req)
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text: req.Text,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tasks":   tasks,
	})
}
