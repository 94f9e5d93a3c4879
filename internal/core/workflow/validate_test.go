package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func node(id string, t NodeType) Node {
	n, _ := NewNode(id, t, Position{})
	return n
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		graph Graph
		want  ValidationErrors
	}{
		{
			name:  "empty graph",
			graph: Graph{},
			want: ValidationErrors{
				WorkflowKey: {MsgMissingStart, MsgMissingEnd},
			},
		},
		{
			name: "disconnected nodes",
			graph: Graph{Nodes: []Node{
				node("in", NodeTypeUserInput),
				node("ok", NodeTypeApproval),
			}},
			want: ValidationErrors{
				"in": {MsgNotConnected},
				"ok": {MsgNotConnected},
			},
		},
		{
			name: "minimal valid graph",
			graph: Graph{
				Nodes: []Node{node("in", NodeTypeUserInput), node("ok", NodeTypeApproval)},
				Edges: []Edge{{ID: "e1", Source: "in", Target: "ok"}},
			},
			want: ValidationErrors{},
		},
		{
			name: "missing end node only",
			graph: Graph{
				Nodes: []Node{node("in", NodeTypeAPIInput), node("cc", NodeTypeCreditCheck)},
				Edges: []Edge{{ID: "e1", Source: "in", Target: "cc"}},
			},
			want: ValidationErrors{WorkflowKey: {MsgMissingEnd}},
		},
		{
			name: "missing start node only",
			graph: Graph{
				Nodes: []Node{node("cc", NodeTypeCreditCheck), node("rv", NodeTypeReview)},
				Edges: []Edge{{ID: "e1", Source: "cc", Target: "rv"}},
			},
			want: ValidationErrors{WorkflowKey: {MsgMissingStart}},
		},
		{
			name: "single node is never connected",
			graph: Graph{Nodes: []Node{node("in", NodeTypeUserInput)}},
			want: ValidationErrors{
				WorkflowKey: {MsgMissingEnd},
				"in":        {MsgNotConnected},
			},
		},
		{
			name: "dangling edge still connects its existing endpoint",
			graph: Graph{
				Nodes: []Node{node("in", NodeTypeUserInput), node("rj", NodeTypeRejection)},
				Edges: []Edge{
					{ID: "e1", Source: "in", Target: "gone"},
					{ID: "e2", Source: "gone", Target: "rj"},
				},
			},
			want: ValidationErrors{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.graph)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want) == 0, got.Valid())
		})
	}
}

func TestValidationErrors_KeysAndClone(t *testing.T) {
	errs := ValidationErrors{
		"node-b":    {MsgNotConnected},
		WorkflowKey: {MsgMissingStart},
		"node-a":    {MsgNotConnected},
	}
	assert.Equal(t, []string{WorkflowKey, "node-a", "node-b"}, errs.Keys())
	assert.Contains(t, errs.Error(), "workflow: "+MsgMissingStart)

	clone := errs.Clone()
	clone[WorkflowKey][0] = "changed"
	assert.Equal(t, MsgMissingStart, errs[WorkflowKey][0])
}
