// Package workflow provides edge definitions
package workflow

import "fmt"

// Edge represents a directed connection from one node's output to another
// node's input. Endpoints are not checked against the node collection here.
type Edge struct {
	ID     string `json:"id" yaml:"id" validate:"required,max=200"`
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
}

// EdgeID returns the identifier the canvas assigns to a new connection.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e%s-%s", source, target)
}

// Validate ensures edge integrity
func (e *Edge) Validate() error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Touches reports whether the edge has nodeID as source or target.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}
