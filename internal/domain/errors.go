package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("no verified identity")
	ErrForbidden       = errors.New("not allowed")
	ErrTaskNotFound    = errors.New("task not found")
	ErrValidation      = errors.New("validation failed")
	ErrStorage         = errors.New("storage failure")
	ErrNotInRoom       = errors.New("not joined to the room")
)

// ErrorCode maps a domain error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return ErrCodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return ErrCodeForbidden
	case errors.Is(err, ErrTaskNotFound):
		return ErrCodeTaskNotFound
	case errors.Is(err, ErrValidation):
		return ErrCodeValidationFailed
	case errors.Is(err, ErrStorage):
		return ErrCodeStorageError
	case errors.Is(err, ErrNotInRoom):
		return ErrCodeNotInRoom
	default:
		return ErrCodeBadRequest
	}
}
