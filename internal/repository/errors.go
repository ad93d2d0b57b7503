package repository

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create collides with an existing email.
var ErrConflict = errors.New("already exists")
