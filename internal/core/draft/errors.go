package draft

import "errors"

var (
	// Draft validation errors
	ErrInvalidDraftID = errors.New("invalid draft ID")
	ErrInvalidName    = errors.New("draft name cannot be empty")
	ErrEmptyDocument  = errors.New("draft document cannot be empty")
	ErrDraftNotFound  = errors.New("draft not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")

	// ErrMemoryLimit is returned when a draft cannot fit even after eviction.
	ErrMemoryLimit = errors.New("draft store memory limit exceeded")
)
