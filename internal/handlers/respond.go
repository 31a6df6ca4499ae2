package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/taskdesk-api/internal/errors"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// respondServiceError maps service errors onto API error responses.
// Unexpected errors are attached to the context for the request logger and
// answered with a generic message.
func respondServiceError(c *gin.Context, err error) {
	if verr, ok := services.IsValidationError(err); ok {
		apierrors.BadRequest(c, verr.Message)
		return
	}

	switch {
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, "Email already in use")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, "Invalid credentials")
	case errors.Is(err, services.ErrInvalidAdminLogin):
		apierrors.InvalidCredentials(c, "Invalid admin credentials")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrDocumentNotFound):
		apierrors.NotFound(c, "File not found")
	case errors.Is(err, services.ErrNotTaskCreator),
		errors.Is(err, services.ErrNotProfileOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		apierrors.InternalError(c, "")
	}
}

// respondBindError answers a request body that failed to bind. Field-level
// problems are listed in details, keyed by JSON field name.
func respondBindError(c *gin.Context, err error, req any) {
	if details := bindErrorDetails(err, req); len(details) > 0 {
		apierrors.BadRequestWithDetails(c, "Invalid request body", details)
		return
	}
	apierrors.BadRequest(c, "Invalid request body")
}

func bindErrorDetails(err error, req any) map[string]string {
	details := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		structType := reflect.TypeOf(req)
		if structType.Kind() == reflect.Pointer {
			structType = structType.Elem()
		}
		for _, e := range validationErrs {
			name := jsonFieldName(structType, e.StructField())
			details[name] = fieldErrorMessage(name, e)
		}
		return details
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		details[typeErr.Field] = fmt.Sprintf("The field '%s' must be of type %s.", typeErr.Field, typeErr.Type)
	}
	return details
}

func jsonFieldName(structType reflect.Type, fieldName string) string {
	field, ok := structType.FieldByName(fieldName)
	if !ok {
		return fieldName
	}
	name := strings.Split(field.Tag.Get("json"), ",")[0]
	if name == "" || name == "-" {
		return fieldName
	}
	return name
}

func fieldErrorMessage(name string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("The field '%s' is required.", name)
	case "min":
		return fmt.Sprintf("The field '%s' must be at least %s characters long.", name, e.Param())
	case "max":
		return fmt.Sprintf("The field '%s' must be no longer than %s characters.", name, e.Param())
	}
	return fmt.Sprintf("The field '%s' is invalid: %s", name, e.Tag())
}
