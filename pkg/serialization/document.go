package serialization

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/flowgraph/creditflow/internal/core/workflow"
)

// Format is the text format of an exported workflow document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptyDocument is returned when there is no text to decode.
var ErrEmptyDocument = errors.New("empty workflow document")

// ParseFormat maps a configuration value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) codec() Codec {
	if f == FormatYAML {
		return NewYAMLCodec()
	}
	return NewPrettyJSONCodec()
}

// EncodeWorkflow renders the graph as a pretty-printed document with the
// top-level fields nodes and edges.
func EncodeWorkflow(g workflow.Graph, format Format) ([]byte, error) {
	data, err := format.codec().Encode(g.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode %s workflow: %w", format, err)
	}
	return data, nil
}

// DecodeWorkflow parses a document produced by EncodeWorkflow. Text whose
// first non-blank character is '{' is read as JSON, anything else as YAML.
func DecodeWorkflow(data []byte) (workflow.Graph, Format, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return workflow.Graph{}, "", ErrEmptyDocument
	}
	format := FormatYAML
	if trimmed[0] == '{' {
		format = FormatJSON
	}

	var g workflow.Graph
	if err := format.codec().Decode(trimmed, &g); err != nil {
		return workflow.Graph{}, format, fmt.Errorf("decode %s workflow: %w", format, err)
	}
	return g.Normalize(), format, nil
}
