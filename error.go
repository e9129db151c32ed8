package multiredis

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	Unknown ErrorCode = iota
	// ConnectionFailure means a handle could not be established against the Redis server.
	ConnectionFailure
	// ConfigurationInvalid means a datasource block failed validation at startup.
	ConfigurationInvalid
	// StaticModeViolation means a non-default DB was requested from a static datasource.
	StaticModeViolation
	// UnknownDatasource means a lookup named a datasource that was never registered.
	UnknownDatasource
)

// Sentinels matched by errors.Is against an Error of the corresponding code.
var (
	ErrConnection        = errors.New("multiredis: connection error")
	ErrConfiguration     = errors.New("multiredis: configuration error")
	ErrStaticMode        = errors.New("multiredis: static mode violation")
	ErrUnknownDatasource = errors.New("multiredis: unknown datasource")
)

// Error is the multiredis custom error.
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error code: %d, user data: %v", e.Code, e.UserData)
	}
	return fmt.Sprintf("error code: %d, user data: %v, details: %v", e.Code, e.UserData, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Is maps the error code to its sentinel so callers can use errors.Is(err, ErrStaticMode) etc.
func (e Error) Is(target error) bool {
	switch e.Code {
	case ConnectionFailure:
		return target == ErrConnection
	case ConfigurationInvalid:
		return target == ErrConfiguration
	case StaticModeViolation:
		return target == ErrStaticMode
	case UnknownDatasource:
		return target == ErrUnknownDatasource
	}
	return false
}

// NewConnectionError wraps err as a ConnectionFailure for the given datasource and DB.
func NewConnectionError(datasource string, db int, err error) error {
	return Error{
		Code:     ConnectionFailure,
		Err:      err,
		UserData: fmt.Sprintf("datasource=%s db=%d", datasource, db),
	}
}

// NewConfigurationError reports an invalid datasource block.
func NewConfigurationError(datasource string, format string, args ...any) error {
	return Error{
		Code:     ConfigurationInvalid,
		Err:      fmt.Errorf(format, args...),
		UserData: datasource,
	}
}

// NewStaticModeError reports a request for db on a datasource pinned to defaultDB.
func NewStaticModeError(datasource string, db, defaultDB int) error {
	return Error{
		Code:     StaticModeViolation,
		Err:      fmt.Errorf("datasource %q is static, only db %d is allowed, got %d", datasource, defaultDB, db),
		UserData: datasource,
	}
}

// NewUnknownDatasourceError reports a lookup of an unregistered datasource name.
func NewUnknownDatasourceError(name string) error {
	return Error{
		Code:     UnknownDatasource,
		Err:      fmt.Errorf("datasource %q is not registered", name),
		UserData: name,
	}
}
