package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(errors.New("bad multipart")), http.StatusBadRequest, "INVALID_REQUEST"},
		{"field validation", ErrValidation("usage_min", "must be positive"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"library not loaded", ErrLibraryNotLoaded, http.StatusNotFound, "LIBRARY_NOT_LOADED"},
		{"payload too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"no reports", ErrNoReports, http.StatusBadRequest, "NO_REPORTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.err.Message, tt.err.Error())
		})
	}
}

func TestAPIError_Details(t *testing.T) {
	err := ErrValidation("usage_min", "must be positive")
	assert.Equal(t, ValidationError{Field: "usage_min", Message: "must be positive"}, err.Details)

	verr := NewValidationErrors([]ValidationError{
		{Field: "metric", Message: "unknown metric"},
		{Field: "usage_max", Message: "must not be below usage_min"},
	})
	details, ok := verr.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusUnprocessableEntity, TypeMalformedPeriod, "Malformed Report", "missing Title column", "/api/v1/analysis").
		WithExtension("period", "FY21.xlsx").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeMalformedPeriod, decoded["type"])
	assert.Equal(t, "FY21.xlsx", decoded["period"])
	// Standard members cannot be shadowed by extensions.
	assert.Equal(t, float64(http.StatusUnprocessableEntity), decoded["status"])

	empty, err := json.Marshal(NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(empty), "detail")
	assert.NotContains(t, string(empty), "instance")
}
