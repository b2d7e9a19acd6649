package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider fetch failures.
type ErrorKind string

const (
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindConnection  ErrorKind = "connection"
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindMalformed   ErrorKind = "malformed_response"
)

// ProviderError is returned by rate providers. It never propagates past
// the update coordinator: there it is folded into the per-source outcome
// of the run report.
type ProviderError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Source, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(source string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Source: source, Kind: kind, Err: err}
}

// ValidationError covers unknown currency codes and bad pair formats.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PersistenceError wraps a failed write or rename of a persisted file.
// Unlike provider errors it fails the whole update run.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigError reports a missing or invalid configuration value, most
// commonly an absent API credential.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

var (
	ErrRateNotFound      = errors.New("rate not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrBadCredentials    = errors.New("invalid username or password")
)
