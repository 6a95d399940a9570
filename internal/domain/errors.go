package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrProviderFailure = errors.New("provider failure")
	ErrCacheFailure    = errors.New("cache failure")
	ErrJobTerminal     = errors.New("job already terminal")
)

// QuotaExceededError reports which quota dimension a user exhausted. It
// matches ErrQuotaExceeded under errors.Is so the orchestrator can treat it
// as a job-level abort without inspecting the fields.
type QuotaExceededError struct {
	Kind  string
	Limit float64
	Used  float64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s limit %g, used %g", e.Kind, e.Limit, e.Used)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// ProviderError wraps a generation backend failure. Item-level: the
// orchestrator records it and moves on to the next item.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProviderFailure }
