package store

import "errors"

var (
	// ErrNotFound is returned when a record doesn't exist or is deleted (has TTL <= now).
	ErrNotFound = errors.New("roster: record not found")

	// ErrAlreadyExists is returned when inserting a record whose key already exists.
	ErrAlreadyExists = errors.New("roster: record already exists")

	// ErrGuestNotFound is returned when creating a companion for a guest
	// that doesn't exist or is deleted.
	ErrGuestNotFound = errors.New("roster: guest not found")
)
