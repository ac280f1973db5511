package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned for any response outside the 2xx range.
// Message carries the "error" field of a JSON body when there is one.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(method, url string, statusCode int, message string) error {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Message:    message,
	}
}

// StatusCode returns the status of an *HTTPError anywhere in err's chain, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Rejected reports whether the peer refused the request itself, so that
// sending it again cannot succeed. 408 and 429 are transient.
func Rejected(err error) bool {
	code := StatusCode(err)
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
