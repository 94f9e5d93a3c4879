package validation

import (
	"fmt"

	"github.com/flowgraph/creditflow/internal/core/workflow"
)

// ValidateGraph performs structural validation on a graph loaded from an
// external document, where the store's editing helpers were bypassed. Field
// tags are checked first, then identity rules (unique node and edge ids, data
// matching node type). The workflow rules are not applied here.
func ValidateGraph(g workflow.Graph) error {
	if err := ValidateStruct(g); err != nil {
		return err
	}
	if err := g.CheckIntegrity(); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	return nil
}
