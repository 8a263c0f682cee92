package common

import "errors"

var (
	// ErrNotFound reports a missing record, locally or on the Gateway.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports rejected user input. It is never retried.
	ErrValidation = errors.New("validation error")
)
