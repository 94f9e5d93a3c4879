package workflow

import (
	"sort"
	"strings"
)

// WorkflowKey is the ValidationErrors key for graph-level problems.
const WorkflowKey = "workflow"

// Validation messages.
const (
	MsgMissingStart = "Workflow must start with an input node"
	MsgMissingEnd   = "Workflow must have at least one end node"
	MsgNotConnected = "Node must be connected"
)

// ValidationErrors maps WorkflowKey or a node id to its ordered messages.
type ValidationErrors map[string][]string

// Valid reports whether no key carries an error.
func (v ValidationErrors) Valid() bool {
	return len(v) == 0
}

// Clone returns a deep copy.
func (v ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(v))
	for k, msgs := range v {
		out[k] = append([]string(nil), msgs...)
	}
	return out
}

// Keys returns the keys in sorted order with WorkflowKey first.
func (v ValidationErrors) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == WorkflowKey || keys[j] == WorkflowKey {
			return keys[i] == WorkflowKey && keys[j] != WorkflowKey
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	var parts []string
	for _, k := range v.Keys() {
		parts = append(parts, k+": "+strings.Join(v[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// Validate runs every workflow rule against the graph and accumulates all
// findings. An edge counts as a connection for each node id it names, whether
// or not the other endpoint exists.
func Validate(g Graph) ValidationErrors {
	errs := ValidationErrors{}

	hasStart, hasEnd := false, false
	for _, n := range g.Nodes {
		hasStart = hasStart || n.Type.IsStart()
		hasEnd = hasEnd || n.Type.IsEnd()
	}
	if !hasStart {
		errs[WorkflowKey] = append(errs[WorkflowKey], MsgMissingStart)
	}
	if !hasEnd {
		errs[WorkflowKey] = append(errs[WorkflowKey], MsgMissingEnd)
	}

	connected := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	for _, n := range g.Nodes {
		if !connected[n.ID] {
			errs[n.ID] = []string{MsgNotConnected}
		}
	}

	return errs
}
