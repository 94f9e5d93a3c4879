package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewNode(t *testing.T) {
	t.Run("default data", func(t *testing.T) {
		n, err := NewNode("condition-1", NodeTypeCondition, Position{X: 10, Y: 20})
		require.NoError(t, err)
		data, ok := n.Data.(ConditionData)
		require.True(t, ok)
		assert.Equal(t, "Condition", data.Label)
		assert.Equal(t, "New condition node", data.Description)
		assert.Equal(t, OperatorEquals, data.Operator())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewNode("x", NodeType("decision"), Position{})
		assert.ErrorIs(t, err, ErrInvalidNodeType)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := NewNode("", NodeTypeApproval, Position{})
		assert.ErrorIs(t, err, ErrInvalidNodeID)
	})
}

func TestNode_Validate(t *testing.T) {
	n := Node{ID: "a", Type: NodeTypeApproval, Data: RejectionData{}}
	assert.ErrorIs(t, n.Validate(), ErrDataTypeMismatch)

	n.Data = ApprovalData{}
	assert.NoError(t, n.Validate())

	n.Data = nil
	assert.NoError(t, n.Validate())
}

func TestNode_JSON(t *testing.T) {
	original := Node{
		ID:       "creditCheck-1",
		Type:     NodeTypeCreditCheck,
		Position: Position{X: 120.5, Y: 40},
		Data:     CreditCheckData{Base: Base{Label: "Bureau"}, MinimumScore: 620},
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "creditCheck-1",
		"type": "creditCheck",
		"position": {"x": 120.5, "y": 40},
		"data": {"label": "Bureau", "minimumScore": 620}
	}`, string(encoded))

	var decoded Node
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)
}

func TestNode_JSONErrors(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"id":"x","type":"decision","data":{}}`), &n)
	assert.ErrorIs(t, err, ErrInvalidNodeType)

	err = json.Unmarshal([]byte(`{"id":"x","type":"creditCheck","data":{"minimumScore":"high"}}`), &n)
	assert.Error(t, err)
}

func TestNode_JSONMissingData(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"review","position":{"x":1,"y":2}}`), &n))
	assert.Equal(t, ReviewData{}, n.Data)
	assert.Equal(t, "review", n.Label())
}

func TestNode_UnknownDataKey(t *testing.T) {
	tests := []struct {
		name      string
		unmarshal func([]byte, any) error
		text      string
	}{
		{
			name:      "json",
			unmarshal: json.Unmarshal,
			text:      `{"id":"a","type":"userInput","data":{"label":"A","placeholder":"Income"}}`,
		},
		{
			name:      "yaml",
			unmarshal: yaml.Unmarshal,
			text:      "id: a\ntype: userInput\ndata:\n  label: A\n  placeholder: Income\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Node
			err := tt.unmarshal([]byte(tt.text), &n)
			assert.ErrorIs(t, err, ErrUnknownField)
			assert.Contains(t, err.Error(), "placeholder")
		})
	}

	t.Run("base fields are known", func(t *testing.T) {
		var n Node
		require.NoError(t, yaml.Unmarshal([]byte("id: a\ntype: review\ndata:\n  label: Manual\n"), &n))
		assert.Equal(t, "Manual", n.Label())
	})
}

func TestNode_YAML(t *testing.T) {
	original := Node{
		ID:       "userInput-1",
		Type:     NodeTypeUserInput,
		Position: Position{X: 1, Y: 2},
		Data:     UserInputData{Base: Base{Label: "Income"}, FieldName: "income", Required: true},
	}

	encoded, err := yaml.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "fieldName: income")

	var decoded Node
	require.NoError(t, yaml.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)
}

func TestNodeData_WithField(t *testing.T) {
	tests := []struct {
		name    string
		data    NodeData
		key     string
		value   any
		want    NodeData
		wantErr error
	}{
		{
			name:  "user input field name",
			data:  UserInputData{},
			key:   "fieldName",
			value: "income",
			want:  UserInputData{FieldName: "income"},
		},
		{
			name:  "user input required from checkbox string",
			data:  UserInputData{},
			key:   "required",
			value: "true",
			want:  UserInputData{Required: true},
		},
		{
			name:  "credit check minimum score from form text",
			data:  CreditCheckData{},
			key:   "minimumScore",
			value: "650",
			want:  CreditCheckData{MinimumScore: 650},
		},
		{
			name:  "credit check minimum score from JSON number",
			data:  CreditCheckData{},
			key:   "minimumScore",
			value: float64(700),
			want:  CreditCheckData{MinimumScore: 700},
		},
		{
			name:  "condition operator",
			data:  ConditionData{},
			key:   "condition",
			value: "greater",
			want:  ConditionData{Condition: OperatorGreater},
		},
		{
			name:    "condition operator outside the set",
			data:    ConditionData{},
			key:     "condition",
			value:   "between",
			wantErr: ErrInvalidFieldValue,
		},
		{
			name:  "label on outcome node",
			data:  ApprovalData{},
			key:   "label",
			value: "Approve loan",
			want:  ApprovalData{Base: Base{Label: "Approve loan"}},
		},
		{
			name:    "field that does not apply",
			data:    ApprovalData{},
			key:     "minimumScore",
			value:   1,
			wantErr: ErrUnknownField,
		},
		{
			name:    "wrong value kind",
			data:    UserInputData{},
			key:     "required",
			value:   3,
			wantErr: ErrInvalidFieldValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.data.WithField(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultData_EveryType(t *testing.T) {
	for _, nt := range NodeTypes {
		data, err := DefaultData(nt)
		require.NoError(t, err, nt)
		assert.Equal(t, nt, data.NodeType())
		assert.Equal(t, nt.DisplayName(), data.Common().Label)
	}
}

func TestPalette_CoversEveryType(t *testing.T) {
	var types []NodeType
	for _, c := range Palette() {
		for _, e := range c.Nodes {
			types = append(types, e.Type)
		}
	}
	assert.Equal(t, NodeTypes, types)
}

func TestGraph_CheckIntegrity(t *testing.T) {
	good := Graph{
		Nodes: []Node{node("a", NodeTypeUserInput), node("b", NodeTypeApproval)},
		Edges: []Edge{{ID: "e1", Source: "a", Target: "missing"}},
	}
	assert.NoError(t, good.CheckIntegrity())

	dupNode := Graph{Nodes: []Node{node("a", NodeTypeUserInput), node("a", NodeTypeApproval)}}
	assert.ErrorIs(t, dupNode.CheckIntegrity(), ErrDuplicateNode)

	dupEdge := Graph{Edges: []Edge{{ID: "e", Source: "a", Target: "b"}, {ID: "e", Source: "b", Target: "a"}}}
	assert.ErrorIs(t, dupEdge.CheckIntegrity(), ErrDuplicateEdge)

	noSource := Graph{Edges: []Edge{{ID: "e", Target: "b"}}}
	assert.ErrorIs(t, noSource.CheckIntegrity(), ErrInvalidSource)
}
