package apperrors

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Classify maps an error from the remote store onto a stable code. Remote
// failures arrive as driver errors whose only reliable signal is the message
// text, so classification falls back to substring matching on well-known
// markers before giving up with CodeRemoteError.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(err, CodeUnavailable, "remote", "remote store unreachable", http.StatusServiceUnavailable)
	}

	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "PERMISSION DENIED"):
		return Wrap(err, CodePermissionDenied, "remote", "remote store denied access, check collection rules", http.StatusForbidden)
	case strings.Contains(msg, "UNAUTHENTICATED") || strings.Contains(msg, "NOT AUTHENTICATED"):
		return Wrap(err, CodeUnauthorized, "remote", "remote session expired, sign in again", http.StatusUnauthorized)
	case strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "CONNECTION REFUSED") || strings.Contains(msg, "TIMEOUT"):
		return Wrap(err, CodeUnavailable, "remote", "remote store unreachable", http.StatusServiceUnavailable)
	default:
		return Wrap(err, CodeRemoteError, "remote", "remote store operation failed", http.StatusBadGateway)
	}
}

// Retryable reports whether the failure is transient and the operation can
// be attempted again without operator intervention.
func Retryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == CodeUnavailable
}
