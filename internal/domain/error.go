package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidJob   = errors.New("job payload is missing required fields")
	ErrNoResponse   = errors.New("model produced no final response")
	ErrContactBusy  = errors.New("another job for this contact is in flight")
	ErrNotListening = errors.New("contact is not whitelisted")
)
