package types

import (
	"errors"
	"fmt"
)

// Store contract errors. Gateways return these (possibly wrapped) so callers
// can match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateField      = errors.New("field already declared")
	ErrApplicationExists   = errors.New("application already exists")
	ErrFieldNotDeclared    = errors.New("field not declared")
	ErrApplicationDisabled = errors.New("application is disabled")
	ErrInvalidFieldCount   = errors.New("field count must be positive")
)

// Reconciliation and validation errors.
var (
	ErrNoProperties        = errors.New("no config properties found in any location")
	ErrInvalidName         = errors.New("invalid application name")
	ErrInvalidPropertyName = errors.New("invalid property name")
)

// StoreError is a failure reported by the backing store that is not one of
// the contract sentinels. It carries the store's own code and message.
type StoreError struct {
	Op      string // gateway operation, e.g. "SetConfigInfo"
	App     string
	Code    string // store-provided code, empty when unknown
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s(%s): store error %s: %s", e.Op, e.App, e.Code, msg)
	}
	return fmt.Sprintf("%s(%s): store error: %s", e.Op, e.App, msg)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialFailureError reports a multi-step operation that failed after some
// of its side effects were committed. The application may be left without
// part of its schema, disabled, or deleted altogether.
type PartialFailureError struct {
	Op   string // "create" or "replace"
	App  string
	Step string // step that failed

	// ApplicationDeleted is true when the application no longer exists in
	// the store. Its previous properties are lost.
	ApplicationDeleted bool

	Err error
}

func (e *PartialFailureError) Error() string {
	state := "left partially configured"
	if e.ApplicationDeleted {
		state = "deleted and not recreated"
	}
	return fmt.Sprintf("partial failure: %s %q failed at %s, application %s: %v", e.Op, e.App, e.Step, state, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsPartialFailure reports whether err is or wraps a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}

// IsStoreFailure reports whether err is or wraps a StoreError.
func IsStoreFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
