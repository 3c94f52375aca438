package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidFilter = errors.New("invalid event filter")
	ErrClosed        = errors.New("event store is closed")
)
