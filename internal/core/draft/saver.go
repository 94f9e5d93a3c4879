package draft

import (
	"context"
	"strings"
	"time"
)

// Saver persists drafts.
type Saver interface {
	// Save stores a draft, replacing any draft with the same ID.
	Save(ctx context.Context, d *Draft) error

	// Load retrieves a draft by ID
	Load(ctx context.Context, id string) (*Draft, error)

	// List returns drafts matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Draft, error)

	// Delete removes a draft by ID
	Delete(ctx context.Context, id string) error
}

// Filter selects drafts in List.
type Filter struct {
	// Name matches drafts whose name contains it, ignoring case.
	Name   string     `json:"name,omitempty"`
	Tags   []string   `json:"tags,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether d passes the name, tag and time criteria. Limit
// and Offset are applied by the caller.
func (f *Filter) Matches(d *Draft) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.Name)) {
		return false
	}
	if !d.HasTags(f.Tags) {
		return false
	}
	if f.Since != nil && d.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Before != nil && !d.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
