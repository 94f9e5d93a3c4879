// Package testrunner simulates a workflow in test mode. Values submitted to
// input nodes are recorded and pushed one step along outgoing edges, where
// condition nodes evaluate them.
package testrunner

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/core/workflow"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
)

// GraphSource is the read-only view of the workflow the runner needs.
type GraphSource interface {
	Nodes() []workflow.Node
	Edges() []workflow.Edge
	Node(id string) (workflow.Node, bool)
}

// ValidatingSource is a GraphSource that can also validate itself.
type ValidatingSource interface {
	GraphSource
	ValidateWorkflow() bool
	ValidationErrors() workflow.ValidationErrors
}

// Config configures a Runner.
type Config struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Runner holds the test data of one test session. It reads the graph from
// its source on every call and never modifies it.
type Runner struct {
	source   GraphSource
	testData map[string]any
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

// New creates a runner with empty test data.
func New(source GraphSource, cfg Config) *Runner {
	return &Runner{
		source:   source,
		testData: make(map[string]any),
		logger:   logging.OrNop(cfg.Logger).With(zap.String("component", "testrunner")),
		metrics:  cfg.Metrics,
	}
}

// Start validates the workflow and returns a runner for it. A workflow that
// fails validation cannot enter test mode.
func Start(source ValidatingSource, cfg Config) (*Runner, error) {
	if !source.ValidateWorkflow() {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowInvalid, source.ValidationErrors())
	}
	return New(source, cfg), nil
}

// SubmitValue records value for nodeID and evaluates every condition node
// directly downstream of it, using value as the condition operand. Other
// downstream nodes are left pending.
func (r *Runner) SubmitValue(nodeID string, value any) error {
	node, ok := r.source.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}
	r.testData[nodeID] = value
	r.metrics.Submission(string(node.Type))

	for _, e := range r.source.Edges() {
		if e.Source != nodeID {
			continue
		}
		target, ok := r.source.Node(e.Target)
		if !ok {
			r.logger.Debug("skipping edge to missing node",
				zap.String("edge", e.ID),
				zap.String("target", e.Target),
			)
			continue
		}
		if target.Type != workflow.NodeTypeCondition {
			continue
		}
		result := evaluate(target, value)
		r.testData[target.ID] = result
		r.logger.Debug("condition evaluated",
			zap.String("node", target.ID),
			zap.Any("operand", value),
			zap.Bool("result", result),
		)
	}
	return nil
}

// EvaluateCondition evaluates a condition node against the value recorded
// for that node in testData. Non-condition nodes evaluate to false. Once a
// value has propagated through the node its slot holds the boolean result,
// which is returned as is rather than compared against the operator again.
func EvaluateCondition(node workflow.Node, testData map[string]any) bool {
	if node.Type != workflow.NodeTypeCondition {
		return false
	}
	if result, ok := testData[node.ID].(bool); ok {
		return result
	}
	return evaluate(node, testData[node.ID])
}

func evaluate(node workflow.Node, operand any) bool {
	if node.Type != workflow.NodeTypeCondition {
		return false
	}
	var cond workflow.ConditionData
	switch d := node.Data.(type) {
	case workflow.ConditionData:
		cond = d
	case nil:
	default:
		return false
	}

	switch cond.Operator() {
	case workflow.OperatorEquals:
		s, ok := operand.(string)
		return ok && s == cond.Value
	case workflow.OperatorGreater:
		return toNumber(operand) > toNumber(cond.Value)
	case workflow.OperatorLess:
		return toNumber(operand) < toNumber(cond.Value)
	}
	return false
}

// toNumber coerces v to a float64. Anything that is not a number, a numeric
// string or a bool becomes NaN, so every comparison against it is false.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return math.NaN()
}

// TestData returns a copy of the recorded values.
func (r *Runner) TestData() map[string]any {
	out := make(map[string]any, len(r.testData))
	for k, v := range r.testData {
		out[k] = v
	}
	return out
}

// Value returns the value recorded for nodeID.
func (r *Runner) Value(nodeID string) (any, bool) {
	v, ok := r.testData[nodeID]
	return v, ok
}

// Reset discards all recorded values.
func (r *Runner) Reset() {
	r.testData = make(map[string]any)
}
