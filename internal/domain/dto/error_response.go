package dto

import "time"

// ErrorResponse is the standard error payload returned by the API.
//
// Fields:
//   - Message: short, human readable summary.
//   - ErrorDetails: underlying error text, if any.
//   - Timestamp: when the error was produced (UTC).
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid date format"`
	ErrorDetails string    `json:"error_details,omitempty" example:"parsing time \"x\" as \"2006-01-02\""`
	Timestamp    time.Time `json:"timestamp" example:"2025-01-01T12:00:00Z"`
}

// Error implements the error interface.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse with the current timestamp.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
