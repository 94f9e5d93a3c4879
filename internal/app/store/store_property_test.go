package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/flowgraph/creditflow/internal/core/workflow"
	"github.com/flowgraph/creditflow/pkg/serialization"
)

func drawGraph(rt *rapid.T) ([]workflow.Node, []workflow.Edge) {
	count := rapid.IntRange(0, 8).Draw(rt, "nodeCount")
	nodes := make([]workflow.Node, 0, count)
	for i := 0; i < count; i++ {
		typ := rapid.SampledFrom(workflow.NodeTypes).Draw(rt, fmt.Sprintf("type_%d", i))
		pos := workflow.Position{
			X: float64(rapid.IntRange(-2000, 2000).Draw(rt, fmt.Sprintf("x_%d", i))),
			Y: float64(rapid.IntRange(-2000, 2000).Draw(rt, fmt.Sprintf("y_%d", i))),
		}
		n, err := workflow.NewNode(fmt.Sprintf("n%d", i), typ, pos)
		require.NoError(rt, err)

		label := rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(rt, fmt.Sprintf("label_%d", i))
		n.Data, err = n.Data.WithField("label", label)
		require.NoError(rt, err)
		nodes = append(nodes, n)
	}

	edges := []workflow.Edge{}
	if count < 2 {
		return nodes, edges
	}
	seen := map[string]bool{}
	for i := rapid.IntRange(0, 10).Draw(rt, "edgeCount"); i > 0; i-- {
		src := rapid.IntRange(0, count-1).Draw(rt, "source")
		dst := rapid.IntRange(0, count-1).Draw(rt, "target")
		if src == dst {
			continue
		}
		e := workflow.Edge{
			ID:     workflow.EdgeID(nodes[src].ID, nodes[dst].ID),
			Source: nodes[src].ID,
			Target: nodes[dst].ID,
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		edges = append(edges, e)
	}
	return nodes, edges
}

func TestProperty_HistoryLinearity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(0, 6).Draw(rt, "limit")
		s := New(Config{HistoryLimit: limit})

		// model of the history: snapshot ids and cursor
		var model []int
		cursor := -1

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for step := 0; step < steps; step++ {
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				node, err := workflow.NewNode(fmt.Sprintf("s%d", step), workflow.NodeTypeReview, workflow.Position{})
				require.NoError(rt, err)
				s.AddHistoryEntry([]workflow.Node{node}, nil)

				model = append(model[:cursor+1], step)
				if limit > 0 && len(model) > limit {
					model = model[len(model)-limit:]
				}
				cursor = len(model) - 1
				assert.Equal(rt, s.HistoryIndex()+1, s.HistoryLen())
			case 1:
				moved := s.Undo()
				assert.Equal(rt, cursor > 0, moved)
				if moved {
					cursor--
				}
			case 2:
				moved := s.Redo()
				assert.Equal(rt, cursor < len(model)-1, moved)
				if moved {
					cursor++
				}
			}

			require.Equal(rt, len(model), s.HistoryLen())
			require.Equal(rt, cursor, s.HistoryIndex())
			if s.HistoryLen() > 0 {
				assert.GreaterOrEqual(rt, s.HistoryIndex(), 0)
				assert.Less(rt, s.HistoryIndex(), s.HistoryLen())
			}
			assert.Equal(rt, cursor > 0, s.CanUndo())
			assert.Equal(rt, cursor < len(model)-1, s.CanRedo())

			for i, id := range model {
				entry, ok := s.HistoryEntry(i)
				require.True(rt, ok)
				assert.Equal(rt, fmt.Sprintf("s%d", id), entry.Nodes[0].ID)
			}
		}
	})
}

func TestProperty_ExportImportRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		format := rapid.SampledFrom([]serialization.Format{serialization.FormatJSON, serialization.FormatYAML}).Draw(rt, "format")
		nodes, edges := drawGraph(rt)

		src := New(Config{Format: format})
		src.ApplyEdit(nodes, edges)
		text, err := src.ExportWorkflow()
		require.NoError(rt, err)

		dst := New(DefaultConfig())
		require.NoError(rt, dst.ImportWorkflow(text))

		assert.Equal(rt, src.Nodes(), dst.Nodes())
		assert.Equal(rt, src.Edges(), dst.Edges())
		assert.Equal(rt, 1, dst.HistoryLen())
		assert.Equal(rt, workflow.Validate(src.Graph()), workflow.Validate(dst.Graph()))
	})
}
