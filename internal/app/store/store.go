// Package store holds the state of one workflow editing session: the node
// and edge collections, the selected node, the last validation report and a
// linear undo/redo history of graph snapshots.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines serialize access themselves.
package store

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/core/workflow"
	"github.com/flowgraph/creditflow/internal/infrastructure/logging"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/serialization"
	"github.com/flowgraph/creditflow/pkg/validation"
)

// DefaultHistoryLimit is the number of snapshots kept by DefaultConfig.
const DefaultHistoryLimit = 100

// Config configures a Store.
type Config struct {
	// HistoryLimit caps retained snapshots; the oldest is dropped first.
	// Zero keeps every snapshot.
	HistoryLimit int
	// Format selects the export document format. Empty means JSON.
	Format  serialization.Format
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// DefaultConfig returns a JSON-exporting store config with a capped history.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: DefaultHistoryLimit,
		Format:       serialization.FormatJSON,
	}
}

// Store is the workflow editing state.
type Store struct {
	nodes      []workflow.Node
	edges      []workflow.Edge
	selectedID string
	errors     workflow.ValidationErrors

	history      []workflow.Graph
	historyIndex int

	historyLimit int
	format       serialization.Format
	logger       *zap.Logger
	metrics      *metrics.Recorder
}

// New creates an empty store. The history starts empty with no cursor.
func New(cfg Config) *Store {
	limit := cfg.HistoryLimit
	if limit < 0 {
		limit = 0
	}
	format := cfg.Format
	if format == "" {
		format = serialization.FormatJSON
	}
	return &Store{
		nodes:        []workflow.Node{},
		edges:        []workflow.Edge{},
		errors:       workflow.ValidationErrors{},
		historyIndex: -1,
		historyLimit: limit,
		format:       format,
		logger:       logging.OrNop(cfg.Logger).With(zap.String("component", "store")),
		metrics:      cfg.Metrics,
	}
}

// SetNodes replaces the node collection. It records no history and does not
// touch edges, so edges may be left pointing at removed nodes.
func (s *Store) SetNodes(nodes []workflow.Node) {
	s.nodes = cloneNodes(nodes)
}

// SetEdges replaces the edge collection without recording history.
func (s *Store) SetEdges(edges []workflow.Edge) {
	s.edges = cloneEdges(edges)
}

// SetSelectedNode selects the node with the given id. An empty id clears
// the selection.
func (s *Store) SetSelectedNode(id string) {
	s.selectedID = id
}

// ClearSelection deselects any node.
func (s *Store) ClearSelection() {
	s.selectedID = ""
}

// SelectedNode returns the current state of the selected node. It reports
// false when nothing is selected or the selected node no longer exists.
func (s *Store) SelectedNode() (workflow.Node, bool) {
	if s.selectedID == "" {
		return workflow.Node{}, false
	}
	return s.Node(s.selectedID)
}

// AddHistoryEntry discards any redo tail, appends a copy of the given
// collections and moves the cursor onto it.
func (s *Store) AddHistoryEntry(nodes []workflow.Node, edges []workflow.Edge) {
	s.history = append(s.history[:s.historyIndex+1], workflow.Graph{
		Nodes: cloneNodes(nodes),
		Edges: cloneEdges(edges),
	})
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		drop := len(s.history) - s.historyLimit
		s.history = append([]workflow.Graph(nil), s.history[drop:]...)
	}
	s.historyIndex = len(s.history) - 1
	s.metrics.HistoryDepth(len(s.history))
}

// ApplyEdit replaces both collections and records them as one history entry.
func (s *Store) ApplyEdit(nodes []workflow.Node, edges []workflow.Edge) {
	s.applyEdit("apply", nodes, edges)
}

func (s *Store) applyEdit(op string, nodes []workflow.Node, edges []workflow.Edge) {
	s.SetNodes(nodes)
	s.SetEdges(edges)
	s.AddHistoryEntry(s.nodes, s.edges)
	s.metrics.Edit(op)
	s.logger.Debug("edit recorded",
		zap.String("op", op),
		zap.Int("nodes", len(s.nodes)),
		zap.Int("edges", len(s.edges)),
		zap.Int("history_index", s.historyIndex),
	)
}

// Undo restores the previous snapshot. It reports whether the cursor moved.
func (s *Store) Undo() bool {
	if s.historyIndex <= 0 {
		return false
	}
	s.historyIndex--
	s.restore(s.history[s.historyIndex])
	s.metrics.Undo()
	return true
}

// Redo restores the next snapshot. It reports whether the cursor moved.
func (s *Store) Redo() bool {
	if s.historyIndex >= len(s.history)-1 {
		return false
	}
	s.historyIndex++
	s.restore(s.history[s.historyIndex])
	s.metrics.Redo()
	return true
}

func (s *Store) restore(g workflow.Graph) {
	s.nodes = cloneNodes(g.Nodes)
	s.edges = cloneEdges(g.Edges)
}

// CanUndo reports whether Undo would move the cursor.
func (s *Store) CanUndo() bool { return s.historyIndex > 0 }

// CanRedo reports whether Redo would move the cursor.
func (s *Store) CanRedo() bool { return s.historyIndex < len(s.history)-1 }

// HistoryLen returns the number of retained snapshots.
func (s *Store) HistoryLen() int { return len(s.history) }

// HistoryIndex returns the cursor, -1 when the history is empty.
func (s *Store) HistoryIndex() int { return s.historyIndex }

// HistoryEntry returns a copy of the snapshot at position i.
func (s *Store) HistoryEntry(i int) (workflow.Graph, bool) {
	if i < 0 || i >= len(s.history) {
		return workflow.Graph{}, false
	}
	return s.history[i].Clone(), true
}

// ValidateWorkflow rebuilds the validation report from the current graph
// and reports whether it is empty.
func (s *Store) ValidateWorkflow() bool {
	s.errors = workflow.Validate(s.Graph())
	valid := s.errors.Valid()
	s.metrics.Validation(valid)
	return valid
}

// ValidationErrors returns a copy of the last validation report.
func (s *Store) ValidationErrors() workflow.ValidationErrors {
	return s.errors.Clone()
}

// ExportWorkflow renders the current graph as a pretty-printed document.
func (s *Store) ExportWorkflow() (string, error) {
	data, err := serialization.EncodeWorkflow(s.Graph(), s.format)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportWorkflow replaces the graph with the one described by text and
// records it as one history entry. On any parse or validation failure the
// store is left unchanged and the returned error wraps ErrMalformedImport.
func (s *Store) ImportWorkflow(text string) error {
	g, format, err := serialization.DecodeWorkflow([]byte(text))
	if err == nil {
		err = validation.ValidateGraph(g)
	}
	if err != nil {
		s.logger.Warn("workflow import failed",
			zap.String("format", string(format)),
			zap.Int("bytes", len(text)),
			zap.Error(err),
		)
		s.metrics.Import(false)
		return fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}

	s.applyEdit("import", g.Nodes, g.Edges)
	s.metrics.Import(true)
	s.logger.Info("workflow imported",
		zap.String("format", string(format)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	return nil
}

// Nodes returns a copy of the node collection.
func (s *Store) Nodes() []workflow.Node { return cloneNodes(s.nodes) }

// Edges returns a copy of the edge collection.
func (s *Store) Edges() []workflow.Edge { return cloneEdges(s.edges) }

// Graph returns a copy of both collections.
func (s *Store) Graph() workflow.Graph {
	return workflow.Graph{Nodes: s.Nodes(), Edges: s.Edges()}
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (workflow.Node, bool) {
	if i := s.nodeIndex(id); i >= 0 {
		return s.nodes[i], true
	}
	return workflow.Node{}, false
}

// AddNode places a new node of type t carrying its default data.
func (s *Store) AddNode(t workflow.NodeType, pos workflow.Position) (workflow.Node, error) {
	node, err := workflow.NewNode(fmt.Sprintf("%s-%s", t, uuid.NewString()), t, pos)
	if err != nil {
		return workflow.Node{}, err
	}
	nodes := append(s.Nodes(), node)
	s.applyEdit("add_node", nodes, s.edges)
	return node, nil
}

// MoveNode changes a node's canvas position.
func (s *Store) MoveNode(id string, pos workflow.Position) error {
	return s.editNode("move_node", id, func(n *workflow.Node) error {
		n.Position = pos
		return nil
	})
}

// UpdateNodeData replaces a node's data. The variant must match the node type.
func (s *Store) UpdateNodeData(id string, data workflow.NodeData) error {
	return s.editNode("update_data", id, func(n *workflow.Node) error {
		if data == nil || data.NodeType() != n.Type {
			return fmt.Errorf("%w: node %s is %s", workflow.ErrDataTypeMismatch, id, n.Type)
		}
		n.Data = data
		return nil
	})
}

// SetNodeField sets one named data field, as the inspector does.
func (s *Store) SetNodeField(id, key string, value any) error {
	return s.editNode("set_field", id, func(n *workflow.Node) error {
		data := n.Data
		if data == nil {
			var err error
			if data, err = workflow.DefaultData(n.Type); err != nil {
				return err
			}
		}
		updated, err := data.WithField(key, value)
		if err != nil {
			return err
		}
		n.Data = updated
		return nil
	})
}

// EditNode moves a node and sets data fields as a single edit. A nil pos
// leaves the position alone. Fields are applied in key order; if any fails
// nothing is recorded.
func (s *Store) EditNode(id string, pos *workflow.Position, fields map[string]any) error {
	return s.editNode("edit_node", id, func(n *workflow.Node) error {
		if pos != nil {
			n.Position = *pos
		}
		if len(fields) == 0 {
			return nil
		}
		data := n.Data
		if data == nil {
			var err error
			if data, err = workflow.DefaultData(n.Type); err != nil {
				return err
			}
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var err error
			if data, err = data.WithField(k, fields[k]); err != nil {
				return err
			}
		}
		n.Data = data
		return nil
	})
}

func (s *Store) editNode(op, id string, fn func(*workflow.Node) error) error {
	i := s.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, id)
	}
	nodes := s.Nodes()
	if err := fn(&nodes[i]); err != nil {
		return err
	}
	s.applyEdit(op, nodes, s.edges)
	return nil
}

// Connect adds an edge from source to target. Connecting an already
// connected pair returns the existing edge and records nothing.
func (s *Store) Connect(source, target string) (workflow.Edge, error) {
	for _, id := range []string{source, target} {
		if s.nodeIndex(id) < 0 {
			return workflow.Edge{}, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, id)
		}
	}
	if source == target {
		return workflow.Edge{}, fmt.Errorf("%w: %s", workflow.ErrSelfLoop, source)
	}

	edge := workflow.Edge{ID: workflow.EdgeID(source, target), Source: source, Target: target}
	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return e, nil
		}
		if e.ID == edge.ID {
			return workflow.Edge{}, fmt.Errorf("%w: %s", workflow.ErrDuplicateEdge, edge.ID)
		}
	}

	s.applyEdit("connect", s.nodes, append(s.Edges(), edge))
	return edge, nil
}

// RemoveEdge deletes the edge with the given id.
func (s *Store) RemoveEdge(id string) error {
	edges := make([]workflow.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	if len(edges) == len(s.edges) {
		return fmt.Errorf("%w: %s", workflow.ErrEdgeNotFound, id)
	}
	s.applyEdit("remove_edge", s.nodes, edges)
	return nil
}

// RemoveNode deletes a node together with every edge touching it, and
// clears the selection if it pointed at the node.
func (s *Store) RemoveNode(id string) error {
	i := s.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, id)
	}
	nodes := append(s.Nodes()[:i:i], s.nodes[i+1:]...)
	edges := make([]workflow.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if !e.Touches(id) {
			edges = append(edges, e)
		}
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.applyEdit("remove_node", nodes, edges)
	return nil
}

func (s *Store) nodeIndex(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneNodes(nodes []workflow.Node) []workflow.Node {
	if nodes == nil {
		return []workflow.Node{}
	}
	return workflow.CloneNodes(nodes)
}

func cloneEdges(edges []workflow.Edge) []workflow.Edge {
	if edges == nil {
		return []workflow.Edge{}
	}
	return workflow.CloneEdges(edges)
}
