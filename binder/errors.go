package binder

import "errors"

// Common binding errors
var (
	ErrInvalidPath = errors.New("invalid path parameter")
)
