// Package errs defines the error kinds shared by every component.
//
// Components wrap one of the sentinels below so transports can classify an
// error with errors.Is without knowing which component produced it:
//
//	var ErrAlreadyFriends = fmt.Errorf("%w: users are already friends", errs.ErrConflict)
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConsistency marks a partially applied multi-record change that could
	// not be reconciled.
	ErrConsistency = errors.New("consistency failure")
	// ErrUnavailable wraps every storage or collaborator I/O failure.
	ErrUnavailable = errors.New("service unavailable")
)

// Unavailable wraps a collaborator failure as ErrUnavailable, keeping the
// underlying message for logs.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Code returns the wire code for err, as used in NATS reply packets.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "ERR_NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "ERR_INVALID_INPUT"
	case errors.Is(err, ErrConflict):
		return "ERR_CONFLICT"
	case errors.Is(err, ErrInvalidState):
		return "ERR_INVALID_STATE"
	case errors.Is(err, ErrUnauthorized):
		return "ERR_UNAUTHORIZED"
	case errors.Is(err, ErrConsistency):
		return "ERR_CONSISTENCY"
	case errors.Is(err, ErrUnavailable):
		return "ERR_UNAVAILABLE"
	default:
		return "ERR_INTERNAL"
	}
}
