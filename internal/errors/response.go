package errors

import "net/http"

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail holds the caller-visible parts of an error.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse converts any error into the response body. The hint wins
// over the raw error text so internals never leak to callers for marked
// errors; unmarked errors render a generic message.
func NewErrorResponse(err error) ErrorResponse {
	message := Hint(err)
	if message == "" {
		switch {
		case IsValidation(err) || IsInvalidOperation(err) || IsNotFound(err) || IsAlreadyExists(err):
			message = err.Error()
		default:
			message = "An unexpected error occurred"
		}
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Details: ReportableDetails(err),
		},
	}
}

// HTTPStatusFromErr maps a marked error to its HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsInvalidOperation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err):
		return http.StatusConflict
	case IsPermissionDenied(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
