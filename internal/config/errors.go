package config

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an unusable configuration. It is fatal at
// startup and never retried.
type ConfigurationError struct {
	// Field is the dotted config path (e.g. "relay.url").
	Field string

	Message string

	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
