package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownCategory = errors.New("unknown entity category")
	ErrNoUsableSQL     = errors.New("model produced no usable SQL")
)
