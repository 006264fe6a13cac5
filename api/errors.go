package api

import (
	"fmt"
)

// HTTPError is returned for responses outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Response   *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// ServiceError is the generic error read-style calls (Get, Query, Delete)
// convert every failure into, as "[RWV] ApiService <error text>". Only the
// text is kept; the original error is not reachable through errors.Unwrap.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}

	return &ServiceError{
		Message: fmt.Sprintf("[RWV] ApiService %v", err),
	}
}
