package auth

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("resource conflict")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("permission denied")
)
