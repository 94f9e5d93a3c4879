// Package workflow defines domain-specific errors
package workflow

import "errors"

// Domain errors - defined once, used everywhere
var (
	// Node errors
	ErrInvalidNodeID     = errors.New("invalid node ID")
	ErrInvalidNodeType   = errors.New("invalid node type")
	ErrNodeNotFound      = errors.New("node not found")
	ErrDuplicateNode     = errors.New("duplicate node ID")
	ErrDataTypeMismatch  = errors.New("node data does not match node type")
	ErrUnknownField      = errors.New("unknown node data field")
	ErrInvalidFieldValue = errors.New("invalid node data field value")

	// Edge errors
	ErrInvalidEdgeID = errors.New("invalid edge ID")
	ErrInvalidSource = errors.New("invalid source node")
	ErrInvalidTarget = errors.New("invalid target node")
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrDuplicateEdge = errors.New("duplicate edge ID")
	ErrSelfLoop      = errors.New("self-loops are not allowed")
)
