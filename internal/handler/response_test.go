package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/graduate-showcase/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "validation",
			err:     apperror.ValidationFailed("name", "Please fill in all required fields: name is missing"),
			status:  http.StatusBadRequest,
			code:    "validation_error",
			message: "Please fill in all required fields: name is missing",
		},
		{
			name:    "wrapped conflict",
			err:     fmt.Errorf("creating graduate: %w", apperror.Conflict("Graduate", "ada")),
			status:  http.StatusConflict,
			code:    "conflict",
			message: "Graduate ada already exists",
		},
		{
			name:    "not found",
			err:     apperror.NotFound("graduate", "name", "ada"),
			status:  http.StatusNotFound,
			code:    "not_found",
			message: "graduate not found with name ada",
		},
		{
			name:    "upstream",
			err:     fmt.Errorf("enriching graduate 1: %w", apperror.Upstream("github", errors.New(`Post "https://api.github.com/graphql": dial tcp: i/o timeout`))),
			status:  http.StatusBadGateway,
			code:    "upstream_error",
			message: "github request failed",
		},
		{
			name:    "unknown error hides details",
			err:     errors.New("sqlite: no such table: graduates_data"),
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var res ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.message, res.Error)
		})
	}
}
