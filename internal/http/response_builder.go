// Package http exposes the ledger as a JSON API.
//
// Every response is an envelope. Successful calls carry
// {data, status:"success", success:true}; failures carry an error object
// with a stable error_id, suggestions and request metadata.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance/internal/core"
	"finance/internal/importer"
	"finance/internal/log"
	"finance/internal/middleware/trace"
	"finance/internal/services"
	"finance/internal/summary"
)

// APIVersion is reported in the metadata of error responses.
const APIVersion = "1.0.0"

// Stable error identifiers returned in error.error_id.
const (
	ErrIDUnauthorized = "unauthorized-401"
	ErrIDMissingID    = "missing-id-400"
	ErrIDInvalidBody  = "invalid-body-400"
	ErrIDImportFailed = "import-failed-400"
	ErrIDNotFound     = "not-found-404"
	ErrIDRateLimited  = "rate-limited-429"
	ErrIDInternal     = "internal-500"
)

// APIError is an error already classified for the wire.
type APIError struct {
	Status      int
	ID          string
	Message     string
	Details     any // string or []string
	Suggestions []string
	cause       error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

type successEnvelope struct {
	Data    any    `json:"data"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

type errorBody struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	Details     any      `json:"details"`
	Suggestions []string `json:"suggestions"`
	ErrorID     string   `json:"error_id"`
	Timestamp   string   `json:"timestamp"`
}

type metadata struct {
	RequestID      string `json:"request_id"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	APIVersion     string `json:"api_version"`
}

type errorEnvelope struct {
	Error    errorBody `json:"error"`
	Status   string    `json:"status"`
	Success  bool      `json:"success"`
	Metadata metadata  `json:"metadata"`
}

func unauthorized() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		ID:      ErrIDUnauthorized,
		Message: "Unauthorized: Access is denied due to invalid credentials.",
		Details: "You must provide valid authentication credentials to access this resource.",
		Suggestions: []string{
			"Verify that your API key or user header is included in the request.",
			"Refer to the authentication section of the API documentation.",
		},
	}
}

func missingID() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		ID:      ErrIDMissingID,
		Message: "Bad Request: Missing required parameter 'id'.",
		Details: "The request could not be processed because the 'id' parameter is missing or empty.",
		Suggestions: []string{
			"Include the 'id' of the resource in the request path.",
		},
	}
}

func invalidBody(err error) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		ID:      ErrIDInvalidBody,
		Message: "Bad Request: The request is invalid.",
		Details: err.Error(),
		Suggestions: []string{
			"Check the request body and query parameters against the API documentation.",
			"Dates use the YYYY-MM-DD format.",
		},
		cause: err,
	}
}

func importFailed(err error) *APIError {
	var details any = err.Error()
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		details = ie.Details()
	}
	return &APIError{
		Status:  http.StatusBadRequest,
		ID:      ErrIDImportFailed,
		Message: "Bad Request: The import was rejected and nothing was saved.",
		Details: details,
		Suggestions: []string{
			"Map the date, payee and amount columns before importing.",
			"Fix the listed rows and import the file again.",
		},
		cause: err,
	}
}

func notFound() *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		ID:      ErrIDNotFound,
		Message: "Not Found: The requested resource could not be found.",
		Details: "The resource does not exist or you do not have access to it.",
		Suggestions: []string{
			"Check that the id is correct and belongs to your account.",
		},
		cause: core.ErrNotFound,
	}
}

func rateLimited() *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		ID:      ErrIDRateLimited,
		Message: "Too Many Requests",
		Details: "Rate limit exceeded for changes from this client.",
		Suggestions: []string{
			"Wait for the duration in the Retry-After header before retrying.",
		},
	}
}

func internalError(err error) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		ID:      ErrIDInternal,
		Message: "Internal Server Error",
		Details: "An unexpected error occurred while processing the request.",
		Suggestions: []string{
			"Retry the request later.",
			"Report the request_id if the problem persists.",
		},
		cause: err,
	}
}

var (
	importErrors = []error{
		importer.ErrEmptyGrid,
		importer.ErrIncomplete,
		services.ErrTooManyRows,
		services.ErrColumnOutOfRange,
		services.ErrNothingToImport,
	}
	validationErrors = []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrEmptyName,
		core.ErrNameTooLong,
		core.ErrEmptyPayee,
		core.ErrPayeeTooLong,
		core.ErrMissingAccount,
		summary.ErrInvalidRange,
	}
)

// classify maps an error from any layer to its wire form.
func classify(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, core.ErrNotFound) {
		return notFound()
	}
	var ie *importer.ImportError
	var re *importer.RowError
	if errors.As(err, &ie) || errors.As(err, &re) {
		return importFailed(err)
	}
	for _, target := range importErrors {
		if errors.Is(err, target) {
			return importFailed(err)
		}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return invalidBody(err)
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return invalidBody(err)
	}
	return internalError(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respond writes data in a success envelope.
func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	if err := writeJSON(w, status, successEnvelope{Data: data, Status: "success", Success: true}); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to write response", log.FieldError, err)
	}
}

// respondError classifies err and writes an error envelope. Internal errors
// are logged with their cause; the client only sees the request id.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	apiErr := classify(err)
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(ctx, "Request rejected",
			log.FieldError, err,
			"error_id", apiErr.ID)
	}

	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = trace.GenerateRequestID()
	}
	var elapsed int64
	if start := trace.GetStartTime(ctx); !start.IsZero() {
		elapsed = time.Since(start).Milliseconds()
	}

	suggestions := apiErr.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	body := errorEnvelope{
		Error: errorBody{
			Code:        apiErr.Status,
			Message:     apiErr.Message,
			Details:     apiErr.Details,
			Suggestions: suggestions,
			ErrorID:     apiErr.ID,
			Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		},
		Status:  "error",
		Success: false,
		Metadata: metadata{
			RequestID:      requestID,
			ResponseTimeMs: elapsed,
			APIVersion:     APIVersion,
		},
	}
	if err := writeJSON(w, apiErr.Status, body); err != nil {
		logger.WarnContext(ctx, "Failed to write error response", log.FieldError, err)
	}
}
