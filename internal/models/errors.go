package models

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidID  = errors.New("invalid id")
	ErrValidation = errors.New("validation error")
	ErrDuplicate  = errors.New("duplicate name")
	ErrForbidden  = errors.New("access denied")
	ErrInUse      = errors.New("resource is referenced and cannot be deleted")
)
