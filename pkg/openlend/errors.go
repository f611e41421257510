package openlend

import "fmt"

// APIError is returned when the API answers with a non-2xx status. The raw
// response body is kept so callers can inspect server-side error details.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}
