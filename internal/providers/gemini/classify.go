package gemini

import (
	"errors"
	"fmt"
	"net/http"
)

// apiError is a non-2xx response from the generation endpoint.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini api: status %d", e.Status)
	}
	return fmt.Sprintf("gemini api: status %d: %s", e.Status, e.Message)
}

// errorClass drives the retry policy: only transient failures are retried.
type errorClass int

const (
	classTransient errorClass = iota
	classPermanent
	classUnknown
)

func (c errorClass) String() string {
	switch c {
	case classTransient:
		return "transient"
	case classPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// classify maps a call failure to its retry class. Rate limits and 5xx
// statuses are transient; every other upstream status is permanent (404 in
// particular means a misconfigured model). Transport and parse errors are
// unknown and not retried.
func classify(err error) errorClass {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return classUnknown
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return classTransient
	case apiErr.Status >= 500 && apiErr.Status <= 599:
		return classTransient
	default:
		return classPermanent
	}
}
