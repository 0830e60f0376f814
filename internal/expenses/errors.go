package expenses

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/tally/pkg/repository"
)

// Domain errors for expense file operations.
var (
	ErrNotFound      = errors.New("expense file not found")
	ErrDuplicate     = errors.New("expense file already exists")
	ErrNotPending    = errors.New("expense file is not pending")
	ErrFileTooLarge  = errors.New("file exceeds maximum upload size")
	ErrInvalidFile   = errors.New("invalid file")
	ErrUserRequired  = errors.New("user_id required")
	ErrInvalidData   = errors.New("invalid expense data")
	ErrInvalidFilter = errors.New("invalid filter")

	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidData,
}

// MapHTTPStatus maps expense domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotPending),
		errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidFile), errors.Is(err, ErrUserRequired), errors.Is(err, ErrInvalidData),
		errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
