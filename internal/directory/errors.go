package directory

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx directory response. Body holds the raw upstream
// payload for logging.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a directory 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a directory 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
