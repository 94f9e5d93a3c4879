package testrunner

import (
	"fmt"

	"github.com/flowgraph/creditflow/internal/core/workflow"
)

// Panel texts.
const (
	StatusWaitingInput      = "Waiting for input..."
	StatusWaitingEvaluation = "Waiting for evaluation..."
	StatusPending           = "Pending"
)

// NodeStatus is one line of the test panel.
type NodeStatus struct {
	NodeID string            `json:"nodeId"`
	Type   workflow.NodeType `json:"type"`
	Label  string            `json:"label"`
	Text   string            `json:"status"`
}

// Status returns the panel text for nodeID, or "" for an unknown node.
func (r *Runner) Status(nodeID string) string {
	node, ok := r.source.Node(nodeID)
	if !ok {
		return ""
	}
	return r.statusText(node)
}

// Statuses returns the panel lines for every node in graph order.
func (r *Runner) Statuses() []NodeStatus {
	nodes := r.source.Nodes()
	out := make([]NodeStatus, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeStatus{
			NodeID: n.ID,
			Type:   n.Type,
			Label:  n.Label(),
			Text:   r.statusText(n),
		})
	}
	return out
}

func (r *Runner) statusText(n workflow.Node) string {
	v, ok := r.testData[n.ID]
	switch n.Type {
	case workflow.NodeTypeUserInput, workflow.NodeTypeAPIInput:
		if !ok || isBlank(v) {
			return StatusWaitingInput
		}
		return fmt.Sprintf("Input: %v", v)
	case workflow.NodeTypeCreditCheck, workflow.NodeTypeScoreCalculation:
		if !ok || isBlank(v) {
			return StatusWaitingInput
		}
		return fmt.Sprintf("Credit Score: %v", v)
	case workflow.NodeTypeCondition:
		if !ok {
			return StatusWaitingEvaluation
		}
		return fmt.Sprintf("Condition Result: %v", v)
	case workflow.NodeTypeApproval, workflow.NodeTypeRejection, workflow.NodeTypeReview:
		return StatusPending
	}
	return ""
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
