package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FallbackMessage is shown when a failure carries no usable message.
const FallbackMessage = "Something went wrong. Please try again."

var (
	// ErrNotFound matches a RequestError with status 404.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches a RequestError with status 409.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized matches a RequestError with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")
)

// RequestError is the single failure shape of every backend call.
//
// A structured rejection carries FieldErrors; an unstructured one carries only
// Message (possibly empty). Transport failures have Status 0 and wrap the
// underlying error in Err, so callers treat them exactly like unstructured
// rejections.
type RequestError struct {
	Status      int
	Message     string
	FieldErrors map[string]string
	Err         error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return "backend transport: " + e.Err.Error()
		}
		return "backend transport failure"
	}
	if e.Message == "" {
		return fmt.Sprintf("backend: HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend: HTTP %d: %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is lets callers match on status classes with errors.Is.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// Structured reports whether the backend returned per-field errors.
func (e *RequestError) Structured() bool {
	return len(e.FieldErrors) > 0
}

// Transport reports whether the request never produced an HTTP response.
func (e *RequestError) Transport() bool {
	return e.Status == 0
}

// UserMessage is the text shown in a failure notification.
func (e *RequestError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return FallbackMessage
}

// AsRequestError normalises any error into a RequestError. Errors that are
// not already one are treated as transport failures.
func AsRequestError(err error) *RequestError {
	if err == nil {
		return nil
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	return &RequestError{Err: err}
}

// errorBody accepts both the {message, errors} envelope and a bare {error}.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func decodeError(status int, body []byte) *RequestError {
	re := &RequestError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return re
	}
	re.Message = eb.Message
	if re.Message == "" {
		re.Message = eb.Error
	}
	if len(eb.Errors) > 0 {
		re.FieldErrors = eb.Errors
	}
	return re
}
