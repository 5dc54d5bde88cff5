package llm

import "fmt"

// ProviderError represents a failure of the provider call itself. Transient
// failures (timeouts, network errors, 5xx) are eligible for retry; permanent
// ones (missing key, misconfiguration) are not.
type ProviderError struct {
	Message   string
	Cause     error
	Transient bool
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response that could not be parsed as JSON even
// after repair. It is never retried: a malformed response is assumed
// deterministic for the same prompt/response pairing.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid AI response format: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid AI response format: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
