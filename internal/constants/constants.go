package constants

// Context and session keys
const (
	ContextKeyUserID      = "user_id"
	ContextKeyCurrentUser = "current_user"
	ContextKeyRequestID   = "request_id"
	SessionCookieName     = "tracker_session"
)

// Pagination limits
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Field limits
const (
	MaxNameLength     = 100
	MaxTitleLength    = 100
	MaxCategoryLength = 100
	MaxEmailLength    = 150
	MaxFullNameLength = 150
	MinPasswordLength = 8
	// bcrypt only hashes the first 72 bytes.
	MaxPasswordBytes = 72
)

// AI generation
const (
	MaxAIGeneratedTasks = 20
	MaxAIInputLength    = 5000
)
