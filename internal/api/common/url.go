// Package common provides shared HTTP helpers for the manager and worker handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// NameParam returns the decoded chi URL parameter param as a worker or
// mirror name. Names end up as path components of log directories, so
// separators, whitespace and the dot entries are refused.
func NameParam(r *http.Request, param string) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, param))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", param)
	}
	switch {
	case strings.TrimSpace(name) == "":
		return "", fmt.Errorf("%s cannot be empty", param)
	case strings.ContainsAny(name, " \t\n\r"):
		return "", fmt.Errorf("%s cannot contain whitespace", param)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%s cannot contain a path separator", param)
	case name == "." || name == "..":
		return "", fmt.Errorf("%s is not a valid name", param)
	}
	return name, nil
}
