package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassifyPermissionDenied(t *testing.T) {
	err := Classify(errors.New("rpc error: PERMISSION_DENIED on collection"))
	require.NotNil(t, err)
	assert.Equal(t, CodePermissionDenied, err.Code)
}

func TestClassifyUnauthenticated(t *testing.T) {
	err := Classify(errors.New("UNAUTHENTICATED: token expired"))
	require.NotNil(t, err)
	assert.Equal(t, CodeUnauthorized, err.Code)
}

func TestClassifyUnavailable(t *testing.T) {
	for _, msg := range []string{
		"server UNAVAILABLE",
		"dial tcp: connection refused",
		"operation timeout while waiting",
	} {
		err := Classify(errors.New(msg))
		require.NotNil(t, err, msg)
		assert.Equal(t, CodeUnavailable, err.Code, msg)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	err := Classify(fmt.Errorf("query failed: %w", context.DeadlineExceeded))
	require.NotNil(t, err)
	assert.Equal(t, CodeUnavailable, err.Code)
}

func TestClassifyUnknownFallback(t *testing.T) {
	err := Classify(errors.New("something odd happened"))
	require.NotNil(t, err)
	assert.Equal(t, CodeRemoteError, err.Code)
}

func TestClassifyPassesThroughAppError(t *testing.T) {
	orig := NotFound("doctor", "missing")
	err := Classify(fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Classify(errors.New("UNAVAILABLE"))))
	assert.False(t, Retryable(Classify(errors.New("PERMISSION_DENIED"))))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, CodeDatabaseError, "store", "query failed", 500)
	assert.ErrorIs(t, err, cause)
}
