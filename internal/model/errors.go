package model

import "fmt"

// Error is a custom error type that carries an exit code for structured
// error handling. Commands in internal/cli use this to communicate a
// specific exit code back to main.go. It implements the error interface and
// supports unwrapping via errors.Is and errors.As.
type Error struct {
	// Code is the process exit code associated with this error.
	Code ExitCode

	// Message is a human-readable description of what went wrong.
	Message string

	// Err is the underlying error that caused this Error, if any.
	Err error
}

// Error returns the formatted error message. If an underlying error is
// present, it is included in the output separated by a colon.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As to
// traverse the error chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError: malformed config, unknown processor
// name, missing required option, or an incompatible flag combination.
func NewConfigError(msg string, err error) *Error {
	return &Error{Code: ExitConfig, Message: msg, Err: err}
}

// NewIOError builds an IoError/WriterError: a filesystem, decode, or shard
// finalization failure.
func NewIOError(msg string, err error) *Error {
	return &Error{Code: ExitIO, Message: msg, Err: err}
}

// NewError builds a generic fatal error.
func NewError(msg string, err error) *Error {
	return &Error{Code: ExitError, Message: msg, Err: err}
}
