// Package draft defines saved copies of a workflow document and the port
// used to persist them.
package draft

import (
	"time"
)

// CurrentVersion is written into every new draft.
const CurrentVersion = "1"

// Draft is a named snapshot of an exported workflow document.
type Draft struct {
	ID        string    `json:"id" msgpack:"id" yaml:"id"`
	Name      string    `json:"name" msgpack:"name" yaml:"name"`
	Document  string    `json:"document" msgpack:"document" yaml:"document"`
	Metadata  Metadata  `json:"metadata" msgpack:"metadata" yaml:"metadata"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp" yaml:"timestamp"`
	Version   string    `json:"version" msgpack:"version" yaml:"version"`
}

// Metadata summarizes the saved graph.
type Metadata struct {
	NodeCount int      `json:"node_count" msgpack:"node_count" yaml:"node_count"`
	EdgeCount int      `json:"edge_count" msgpack:"edge_count" yaml:"edge_count"`
	Tags      []string `json:"tags,omitempty" msgpack:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedBy string   `json:"created_by,omitempty" msgpack:"created_by,omitempty" yaml:"created_by,omitempty"`
}

// Validate ensures draft integrity
func (d *Draft) Validate() error {
	if d.ID == "" {
		return ErrInvalidDraftID
	}
	if d.Name == "" {
		return ErrInvalidName
	}
	if d.Document == "" {
		return ErrEmptyDocument
	}
	return nil
}

// HasTags reports whether the draft carries every tag in tags.
func (d *Draft) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range d.Metadata.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
