package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmailTaken             = errors.New("email already in use")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidAdminLogin      = errors.New("invalid admin credentials")
	ErrUserNotFound           = errors.New("user not found")
	ErrTaskNotFound           = errors.New("task not found")
	ErrDocumentNotFound       = errors.New("file not found")
	ErrNotTaskCreator         = errors.New("only the task creator or an admin can delete this task")
	ErrNotProfileOwner        = errors.New("you can only update your own profile")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// ValidationError is returned for malformed or missing input. Message is
// safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidInput(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
