package apperrors

// ErrorCode identifies the category of an application error independent of
// the store backend that produced it.
type ErrorCode string

const (
	// System failures.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeRemoteError   ErrorCode = "REMOTE_ERROR"
	CodeUnavailable   ErrorCode = "UNAVAILABLE"
	CodeUnknownError  ErrorCode = "UNKNOWN_ERROR"

	// Business rule violations.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeAlreadyRated     ErrorCode = "ALREADY_RATED"

	// Authentication and authorization.
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	// Migration lifecycle.
	CodeMigrationRunning ErrorCode = "MIGRATION_RUNNING"
	CodeVerificationFail ErrorCode = "VERIFICATION_FAILED"
)
