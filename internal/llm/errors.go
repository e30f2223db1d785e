package llm

import "fmt"

// UnavailableError is returned when the local inference runtime cannot be
// reached. It is surfaced to the caller, never retried.
type UnavailableError struct {
	Provider string
	Endpoint string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: runtime unreachable at %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ProviderError is returned when a provider responds with an error status.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (404, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
