package constants

import "time"

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Authentication
const (
	MinPasswordLength  = 6
	BcryptCost         = 10
	SessionCookieName  = "sessionToken"
	DefaultTokenTTL    = 48 * time.Hour
	AdminSentinelID    = "0"
	AdminSentinelName  = "admin"
	ContextKeyIdentity = "identity"
	ContextKeyTask     = "task"
)

// Tasks
const (
	MaxTaskDocuments    = 3
	MaxAIGeneratedTasks = 20
)

// Sort orders accepted by the dueDateOrder query parameter
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)
