package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidJsonError     = "invalid_json"
	HttpUnknownLocationError = "unknown_location"
	HttpSessionNotFoundError = "session_not_found"
	HttpItineraryNotFound    = "itinerary_not_found"
	HttpInvalidRangeError    = "invalid_range"
	HttpStoreDisabledError   = "store_disabled"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
