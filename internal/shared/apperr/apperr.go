// Package apperr classifies pipeline failures so the HTTP boundary can pick
// a status code without knowing every concrete error type.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindExternal
	KindPersistence
	KindArtifact
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindExternal:
		return "external_service"
	case KindPersistence:
		return "persistence"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// Classified is implemented by every stage error.
type Classified interface {
	error
	Kind() Kind
}

// KindOf walks the error chain and returns the first classification found.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindUnknown
}

// StatusCode maps an error onto the HTTP status reported to clients.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInput:
		return http.StatusBadRequest
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PersistenceError wraps any gateway failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Kind() Kind { return KindPersistence }

// InputError covers request problems detected before the pipeline starts.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Kind() Kind { return KindInput }
