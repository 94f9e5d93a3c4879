package httpapi

import (
	"time"

	"github.com/flowgraph/creditflow/internal/app/testrunner"
	"github.com/flowgraph/creditflow/internal/core/workflow"
)

type addNodeRequest struct {
	Type     string            `json:"type" validate:"required,node_type"`
	Position workflow.Position `json:"position"`
}

// patchNodeRequest moves a node, sets data fields, or both.
type patchNodeRequest struct {
	Position *workflow.Position `json:"position,omitempty"`
	Fields   map[string]any     `json:"fields,omitempty" validate:"required_without=Position"`
}

type connectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type selectRequest struct {
	NodeID string `json:"nodeId"`
}

type submitRequest struct {
	NodeID string `json:"nodeId" validate:"required"`
	Value  any    `json:"value"`
}

type saveDraftRequest struct {
	Name string   `json:"name" validate:"required,max=200"`
	Tags []string `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
}

type stateResponse struct {
	Nodes        []workflow.Node `json:"nodes"`
	Edges        []workflow.Edge `json:"edges"`
	HistoryIndex int             `json:"historyIndex"`
	HistoryLen   int             `json:"historyLength"`
	CanUndo      bool            `json:"canUndo"`
	CanRedo      bool            `json:"canRedo"`
}

type moveResponse struct {
	Moved bool `json:"moved"`
	stateResponse
}

type validateResponse struct {
	Valid  bool                      `json:"valid"`
	Errors workflow.ValidationErrors `json:"errors"`
}

type testResponse struct {
	Statuses []testrunner.NodeStatus `json:"statuses"`
	TestData map[string]any          `json:"testData"`
}

type draftSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"nodeCount"`
	EdgeCount int       `json:"edgeCount"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
