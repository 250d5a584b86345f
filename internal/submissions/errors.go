package submissions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Detail is one field-level problem within a ValidationError.
type Detail struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// ValidationError reports a submission that cannot be uploaded as given.
// Details is nil when the problem is not tied to a field.
type ValidationError struct {
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// FieldError builds the detail the service itself would report for an
// invalid field: "field '<name>' in <object> is invalid: <reason>".
func FieldError(object, field, path, reason string) Detail {
	return Detail{
		Message: fmt.Sprintf("field '%s' in %s is invalid: %s", field, object, reason),
		Path:    path,
	}
}

// APIError is the error body the Submissions service returns on failure.
type APIError struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// TransportError is any failure surfaced by a call to the service: the
// request could not be made, or the response was not a 2xx. Remote carries
// the decoded error body when the service sent one.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Remote     *APIError
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "submissions: %s %s", e.Method, e.Path)
	switch {
	case e.Err != nil:
		fmt.Fprintf(&sb, ": %v", e.Err)
	case e.Remote != nil && e.Remote.Message != "":
		fmt.Fprintf(&sb, ": HTTP %d: %s", e.StatusCode, e.Remote.Message)
	default:
		fmt.Fprintf(&sb, ": HTTP %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
	}
	return sb.String()
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// decodeAPIError extracts {"error": {...}} from a failed response body. It
// returns nil when the body does not have that shape.
func decodeAPIError(body []byte) *APIError {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env.Error
}
