package hitl

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates no review request exists with the given ID for
	// the requesting owner.
	ErrNotFound = errors.New("review request not found")

	// ErrDuplicatePending indicates the workflow already has an open
	// review request.
	ErrDuplicatePending = errors.New("workflow already has a pending review")

	// ErrAlreadyResolved indicates the request was resolved by an earlier
	// call; the resolution is not applied again.
	ErrAlreadyResolved = errors.New("review request already resolved")

	// ErrInvalidDecision indicates the resolution decision is not one of
	// approved, rejected, or deferred.
	ErrInvalidDecision = errors.New("invalid review decision")

	// ErrMissingReviewer indicates the resolution named no reviewer.
	ErrMissingReviewer = errors.New("reviewer is required")
)

// MapHTTPStatus translates review errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicatePending):
		return http.StatusConflict
	case errors.Is(err, ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingReviewer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
