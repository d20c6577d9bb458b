package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key is set for the provider.
var ErrNotConfigured = errors.New("API key not configured")

// APIError is a non-2xx answer from a chat-completions endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// FunctionError is a failed backend function invocation.
type FunctionError struct {
	Function   string
	StatusCode int // 0 when the function answered 2xx with an error body
	Message    string
}

func (e *FunctionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("function %s failed: %s", e.Function, e.Message)
	}
	return fmt.Sprintf("function %s failed (status %d): %s", e.Function, e.StatusCode, e.Message)
}
