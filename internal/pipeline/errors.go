package pipeline

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a provider that cannot run at all, e.g. a
// missing credential. Raised before any fetch.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s misconfigured: %s", e.Provider, e.Reason)
}

// ProviderError reports a non-recoverable upstream failure that aborts
// the run.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TransientProviderError marks an upstream failure worth retrying.
// Adapters wrap retryable conditions in it; anything else aborts the
// page loop immediately.
type TransientProviderError struct {
	Err error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient provider failure: %v", e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// VolumeExceededError aborts a run whose declared result volume exceeds
// the configured bound. Nothing is imported.
type VolumeExceededError struct {
	Provider string
	Declared int
	Limit    int
}

func (e *VolumeExceededError) Error() string {
	return fmt.Sprintf("provider %s declares %d records, limit is %d; narrow the filters",
		e.Provider, e.Declared, e.Limit)
}

// isTransient reports whether the page loop should retry the fetch.
func isTransient(err error) bool {
	var terr *TransientProviderError
	return errors.As(err, &terr)
}
