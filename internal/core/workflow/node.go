// Package workflow provides the credit workflow domain entities: typed nodes,
// edges, the graph they form and the rules that decide whether a graph is a
// runnable workflow. It has no dependencies outside the encoding packages.
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeType represents the type of node
type NodeType string

const (
	NodeTypeUserInput        NodeType = "userInput"
	NodeTypeAPIInput         NodeType = "apiInput"
	NodeTypeCreditCheck      NodeType = "creditCheck"
	NodeTypeScoreCalculation NodeType = "scoreCalculation"
	NodeTypeCondition        NodeType = "condition"
	NodeTypeApproval         NodeType = "approval"
	NodeTypeRejection        NodeType = "rejection"
	NodeTypeReview           NodeType = "review"
)

// NodeTypes lists every node type in palette order.
var NodeTypes = []NodeType{
	NodeTypeUserInput,
	NodeTypeAPIInput,
	NodeTypeCreditCheck,
	NodeTypeScoreCalculation,
	NodeTypeCondition,
	NodeTypeApproval,
	NodeTypeRejection,
	NodeTypeReview,
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeUserInput, NodeTypeAPIInput, NodeTypeCreditCheck, NodeTypeScoreCalculation,
		NodeTypeCondition, NodeTypeApproval, NodeTypeRejection, NodeTypeReview:
		return true
	}
	return false
}

// IsStart reports whether nodes of this type can start a workflow.
func (t NodeType) IsStart() bool {
	return t == NodeTypeUserInput || t == NodeTypeAPIInput
}

// IsEnd reports whether nodes of this type terminate a workflow.
func (t NodeType) IsEnd() bool {
	return t == NodeTypeApproval || t == NodeTypeRejection || t == NodeTypeReview
}

// DisplayName returns the type name with its first letter upper-cased.
func (t NodeType) DisplayName() string {
	if t == "" {
		return ""
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Position is the node location on the editing canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents a vertex in the workflow graph. The encoding methods below
// define its wire shape; the tags here name fields in validation reports.
type Node struct {
	ID       string   `json:"id" validate:"required,max=200"`
	Type     NodeType `json:"type" validate:"required,node_type"`
	Position Position `json:"position" validate:"-"`
	Data     NodeData `json:"data" validate:"-"`
}

// NewNode creates a node carrying the default data of its type.
func NewNode(id string, t NodeType, pos Position) (Node, error) {
	if id == "" {
		return Node{}, ErrInvalidNodeID
	}
	data, err := DefaultData(t)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Type: t, Position: pos, Data: data}, nil
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNodeType, n.Type)
	}
	if n.Data != nil && n.Data.NodeType() != n.Type {
		return fmt.Errorf("%w: %s carries %s data", ErrDataTypeMismatch, n.Type, n.Data.NodeType())
	}
	return nil
}

// Label returns the configured label, falling back to the type name.
func (n Node) Label() string {
	if n.Data != nil {
		if l := n.Data.Common().Label; l != "" {
			return l
		}
	}
	return string(n.Type)
}

// nodeJSON is the wire shape of a node; data is decoded once the type is known.
type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the node with its data as a flat field mapping.
func (n Node) MarshalJSON() ([]byte, error) {
	var data any = map[string]any{}
	if n.Data != nil {
		data = n.Data
	}
	return json.Marshal(struct {
		ID       string   `json:"id"`
		Type     NodeType `json:"type"`
		Position Position `json:"position"`
		Data     any      `json:"data"`
	}{n.ID, n.Type, n.Position, data})
}

// UnmarshalJSON decodes a node, selecting the data variant from its type.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := decodeData(raw.Type, func(v any) error {
		if len(raw.Data) == 0 || string(raw.Data) == "null" {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(raw.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if strings.HasPrefix(err.Error(), "json: unknown field ") {
				return fmt.Errorf("%w: %s has %s", ErrUnknownField, raw.Type, strings.TrimPrefix(err.Error(), "json: "))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}
	*n = Node{ID: raw.ID, Type: raw.Type, Position: raw.Position, Data: data}
	return nil
}

// MarshalYAML encodes the node with the same field names as JSON.
func (n Node) MarshalYAML() (interface{}, error) {
	var data any = map[string]any{}
	if n.Data != nil {
		data = n.Data
	}
	return struct {
		ID       string   `yaml:"id"`
		Type     NodeType `yaml:"type"`
		Position Position `yaml:"position"`
		Data     any      `yaml:"data"`
	}{n.ID, n.Type, n.Position, data}, nil
}

// UnmarshalYAML decodes a node, selecting the data variant from its type.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID       string    `yaml:"id"`
		Type     NodeType  `yaml:"type"`
		Position Position  `yaml:"position"`
		Data     yaml.Node `yaml:"data"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	data, err := decodeData(raw.Type, func(v any) error {
		if raw.Data.Kind == 0 || raw.Data.Tag == "!!null" {
			return nil
		}
		// yaml.Node.Decode cannot reject unknown keys; a Decoder can.
		buf, err := yaml.Marshal(&raw.Data)
		if err != nil {
			return err
		}
		dec := yaml.NewDecoder(bytes.NewReader(buf))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			if strings.Contains(err.Error(), "not found in type") {
				return fmt.Errorf("%w: %s: %v", ErrUnknownField, raw.Type, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}
	*n = Node{ID: raw.ID, Type: raw.Type, Position: raw.Position, Data: data}
	return nil
}
