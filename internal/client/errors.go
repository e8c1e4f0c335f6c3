package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

// APIError is any other error response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error: %s: %s", e.Code, e.Message)
}
