package workflow

// Graph is the pair of ordered node and edge collections. Order is insertion
// order and only matters for deterministic serialization.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Clone returns a copy that shares no slices with g.
func (g Graph) Clone() Graph {
	return Graph{Nodes: CloneNodes(g.Nodes), Edges: CloneEdges(g.Edges)}
}

// Normalize replaces nil collections with empty ones so the graph always
// serializes as two lists.
func (g Graph) Normalize() Graph {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	return g
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the edges whose source is nodeID, in edge order.
func (g Graph) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// CheckIntegrity reports the first structural problem: a malformed or
// repeated node, or a malformed or repeated edge. Dangling edge endpoints are
// allowed.
func (g Graph) CheckIntegrity() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i := range g.Nodes {
		if err := g.Nodes[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[g.Nodes[i].ID]; dup {
			return ErrDuplicateNode
		}
		seen[g.Nodes[i].ID] = struct{}{}
	}
	seenEdges := make(map[string]struct{}, len(g.Edges))
	for i := range g.Edges {
		if err := g.Edges[i].Validate(); err != nil {
			return err
		}
		if _, dup := seenEdges[g.Edges[i].ID]; dup {
			return ErrDuplicateEdge
		}
		seenEdges[g.Edges[i].ID] = struct{}{}
	}
	return nil
}

// CloneNodes copies a node slice. Node data variants are values, so the copy
// is deep. A nil input stays nil.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out
}

// CloneEdges copies an edge slice. A nil input stays nil.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}
