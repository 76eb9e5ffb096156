package devops

import (
	"encoding/json"
	"fmt"
	"net/http"

	"emperror.dev/errors"
)

// APIError is returned for any non-2xx response from the service.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Status     string
	// Message is the service-provided error message, if the response body
	// carried one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Azure DevOps API %s %s failed (%s): %s", e.Method, e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("Azure DevOps API %s %s failed: %s", e.Method, e.Endpoint, e.Status)
}

func newAPIError(method, endpoint string, res *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: res.StatusCode,
		Status:     res.Status,
	}
	// Error bodies look like {"$id":"1","message":"...","typeKey":"..."}.
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// StatusCode returns the HTTP status code carried by err, or zero if err is
// not (and does not wrap) an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
