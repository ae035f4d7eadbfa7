package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeTables(t *testing.T) {
	codes := map[string]int{
		ErrCodeInvalidRequest:      http.StatusBadRequest,
		ErrCodeValidationFailed:    http.StatusUnprocessableEntity,
		ErrCodeNotFound:            http.StatusNotFound,
		ErrCodeInternalError:       http.StatusInternalServerError,
		ErrCodeRateLimitExceeded:   http.StatusTooManyRequests,
		ErrCodeBackendUnavailable:  http.StatusBadGateway,
		ErrCodeBackendRejected:     http.StatusBadGateway,
		ErrCodeSessionNotFound:     http.StatusNotFound,
		ErrCodeAlreadyProcessing:   http.StatusConflict,
		ErrCodeNotConnected:        http.StatusPreconditionFailed,
		ErrCodeEmptyQuery:          http.StatusBadRequest,
		ErrCodeNoGeneratedSQL:      http.StatusPreconditionFailed,
		ErrCodeMissingFeedbackData: http.StatusPreconditionFailed,
		ErrCodeStaleResponse:       http.StatusConflict,
		ErrCodeDataSourceNotFound:  http.StatusNotFound,
		ErrCodeInvalidJSON:         http.StatusBadRequest,
	}

	require.Equal(t, codes, HTTPStatus, "every code in the status table is one the console returns")
	for code := range codes {
		require.NotEqual(t, "Unknown error", getDefaultMessage(code), code)
	}
}

func TestGetErrorStatus(t *testing.T) {
	wrapped := fmt.Errorf("convert: %w", NewSessionError(ErrCodeAlreadyProcessing))
	require.Equal(t, http.StatusConflict, GetErrorStatus(wrapped))
	require.True(t, IsErrorType(wrapped, ErrCodeAlreadyProcessing))

	require.Equal(t, http.StatusInternalServerError, GetErrorStatus(errors.New("boom")))
	require.Equal(t, http.StatusInternalServerError, GetErrorStatus(NewErrorBuilder("CONFLICT").Build()))
}

func TestNewBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendError(ErrCodeBackendUnavailable, cause, "connection refused")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "connection refused", err.Message)
	require.Equal(t, "BACKEND_UNAVAILABLE: connection refused", err.Error())
}
