package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/atelierhq/easel/internal/domain"
	e "github.com/atelierhq/easel/internal/errors"
	"github.com/atelierhq/easel/internal/reporting"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

// WriteErrorResponse maps known error sentinels to status codes and
// writes a JSON error body. It returns the status code that was written.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	w.Header().Set("Content-Type", "application/json")

	errorResponse := ErrorResponse{
		Success: false,
		Cause:   responseError.Error(),
	}
	errorBytes, err := json.Marshal(errorResponse)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal error response: %w", err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"cause":"internal server error (easel)"}`))
		return http.StatusInternalServerError
	}

	// Unknown error: default to 500
	statusCode := http.StatusInternalServerError

	if errors.Is(responseError, domain.ErrJobNotFound) {
		statusCode = http.StatusNotFound
	} else if errors.Is(responseError, domain.ErrJobNotFinished) {
		statusCode = http.StatusConflict
	} else if errors.Is(responseError, domain.ErrTemporarilyUnavailable) {
		statusCode = http.StatusServiceUnavailable
	} else if errors.Is(responseError, e.APIServerError) {
		statusCode = http.StatusBadGateway
	} else if errors.Is(responseError, e.APIClientError) {
		statusCode = http.StatusBadRequest
	} else if errors.Is(responseError, e.RatelimitExceededError) {
		statusCode = http.StatusTooManyRequests
	}

	w.WriteHeader(statusCode)
	w.Write(errorBytes)

	return statusCode
}
