package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// TaskAuthorizer loads a task on behalf of a caller.
type TaskAuthorizer interface {
	Authorize(ctx context.Context, identity auth.Identity, taskID string) (*models.Task, error)
}

// RequireTaskAccess checks that the caller created the task, is assigned to
// it, or is the admin. Inaccessible tasks answer 404 so their existence is
// not leaked.
func RequireTaskAccess(authorizer TaskAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		task, err := authorizer.Authorize(c.Request.Context(), identity, c.Param("id"))
		if err != nil {
			if verr, ok := services.IsValidationError(err); ok {
				apierrors.BadRequest(c, verr.Message)
				return
			}
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			_ = c.Error(err)
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}
