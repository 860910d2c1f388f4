package workflows

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates no workflow instance exists with the given ID
	// for the requesting owner.
	ErrNotFound = errors.New("workflow not found")

	// ErrDuplicateID indicates an instance with the given ID already exists.
	ErrDuplicateID = errors.New("workflow already exists")

	// ErrVersionConflict indicates a concurrent writer advanced the instance
	// since it was loaded. The caller should reload and retry.
	ErrVersionConflict = errors.New("workflow version conflict")

	// ErrInvalidTransition indicates the requested event is not valid from
	// the instance's current status or node.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrUnknownType indicates no definition is registered for the
	// requested workflow type.
	ErrUnknownType = errors.New("unknown workflow type")

	// ErrUnknownNode indicates the target node is not part of the
	// instance's workflow definition.
	ErrUnknownNode = errors.New("unknown workflow node")
)

// MapHTTPStatus translates workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownNode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
