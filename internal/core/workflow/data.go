package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeData is the type-specific configuration of a node. There is exactly one
// implementation per NodeType and each carries only the fields that apply to
// it. Implementations are value types, so copying a Node copies its data.
type NodeData interface {
	// NodeType returns the node type this data belongs to.
	NodeType() NodeType
	// Common returns the label and description shared by all variants.
	Common() Base
	// WithField returns a copy with one field set from an inspector value.
	WithField(key string, value any) (NodeData, error)
}

// Base holds the fields every node type carries.
type Base struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Common returns the shared fields.
func (b Base) Common() Base { return b }

func (b Base) withField(key string, value any) (Base, bool, error) {
	switch key {
	case "label":
		s, err := asString(key, value)
		b.Label = s
		return b, true, err
	case "description":
		s, err := asString(key, value)
		b.Description = s
		return b, true, err
	}
	return b, false, nil
}

// ConditionOperator selects the comparison a condition node performs.
type ConditionOperator string

const (
	OperatorEquals  ConditionOperator = "equals"
	OperatorGreater ConditionOperator = "greater"
	OperatorLess    ConditionOperator = "less"
)

// UserInputData configures a userInput node.
type UserInputData struct {
	Base      `yaml:",inline"`
	FieldName string `json:"fieldName,omitempty" yaml:"fieldName,omitempty"`
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

func (UserInputData) NodeType() NodeType { return NodeTypeUserInput }

func (d UserInputData) WithField(key string, value any) (NodeData, error) {
	var err error
	switch key {
	case "fieldName":
		d.FieldName, err = asString(key, value)
	case "required":
		d.Required, err = asBool(key, value)
	default:
		var ok bool
		if d.Base, ok, err = d.Base.withField(key, value); !ok {
			return d, unknownField(d.NodeType(), key)
		}
	}
	return d, err
}

// APIInputData configures an apiInput node.
type APIInputData struct {
	Base     `yaml:",inline"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

func (APIInputData) NodeType() NodeType { return NodeTypeAPIInput }

func (d APIInputData) WithField(key string, value any) (NodeData, error) {
	var err error
	switch key {
	case "endpoint":
		d.Endpoint, err = asString(key, value)
	default:
		var ok bool
		if d.Base, ok, err = d.Base.withField(key, value); !ok {
			return d, unknownField(d.NodeType(), key)
		}
	}
	return d, err
}

// CreditCheckData configures a creditCheck node.
type CreditCheckData struct {
	Base         `yaml:",inline"`
	MinimumScore int `json:"minimumScore,omitempty" yaml:"minimumScore,omitempty"`
}

func (CreditCheckData) NodeType() NodeType { return NodeTypeCreditCheck }

func (d CreditCheckData) WithField(key string, value any) (NodeData, error) {
	var err error
	switch key {
	case "minimumScore":
		d.MinimumScore, err = asInt(key, value)
	default:
		var ok bool
		if d.Base, ok, err = d.Base.withField(key, value); !ok {
			return d, unknownField(d.NodeType(), key)
		}
	}
	return d, err
}

// ConditionData configures a condition node. Value is compared against the
// operand the node receives in test mode.
type ConditionData struct {
	Base      `yaml:",inline"`
	Condition ConditionOperator `json:"condition,omitempty" yaml:"condition,omitempty"`
	Value     string            `json:"value,omitempty" yaml:"value,omitempty"`
}

func (ConditionData) NodeType() NodeType { return NodeTypeCondition }

// Operator returns the configured operator, equals when unset.
func (d ConditionData) Operator() ConditionOperator {
	if d.Condition == "" {
		return OperatorEquals
	}
	return d.Condition
}

func (d ConditionData) WithField(key string, value any) (NodeData, error) {
	switch key {
	case "condition":
		s, err := asString(key, value)
		if err != nil {
			return d, err
		}
		switch op := ConditionOperator(s); op {
		case OperatorEquals, OperatorGreater, OperatorLess:
			d.Condition = op
		default:
			return d, fmt.Errorf("%w: condition %q", ErrInvalidFieldValue, s)
		}
		return d, nil
	case "value":
		s, err := asString(key, value)
		d.Value = s
		return d, err
	}
	b, ok, err := d.Base.withField(key, value)
	if !ok {
		return d, unknownField(d.NodeType(), key)
	}
	d.Base = b
	return d, err
}

// ScoreCalculationData configures a scoreCalculation node.
type ScoreCalculationData struct {
	Base `yaml:",inline"`
}

func (ScoreCalculationData) NodeType() NodeType { return NodeTypeScoreCalculation }

func (d ScoreCalculationData) WithField(key string, value any) (NodeData, error) {
	b, ok, err := d.Base.withField(key, value)
	if !ok {
		return d, unknownField(d.NodeType(), key)
	}
	d.Base = b
	return d, err
}

// ApprovalData configures an approval outcome node.
type ApprovalData struct {
	Base `yaml:",inline"`
}

func (ApprovalData) NodeType() NodeType { return NodeTypeApproval }

func (d ApprovalData) WithField(key string, value any) (NodeData, error) {
	b, ok, err := d.Base.withField(key, value)
	if !ok {
		return d, unknownField(d.NodeType(), key)
	}
	d.Base = b
	return d, err
}

// RejectionData configures a rejection outcome node.
type RejectionData struct {
	Base `yaml:",inline"`
}

func (RejectionData) NodeType() NodeType { return NodeTypeRejection }

func (d RejectionData) WithField(key string, value any) (NodeData, error) {
	b, ok, err := d.Base.withField(key, value)
	if !ok {
		return d, unknownField(d.NodeType(), key)
	}
	d.Base = b
	return d, err
}

// ReviewData configures a manual review outcome node.
type ReviewData struct {
	Base `yaml:",inline"`
}

func (ReviewData) NodeType() NodeType { return NodeTypeReview }

func (d ReviewData) WithField(key string, value any) (NodeData, error) {
	b, ok, err := d.Base.withField(key, value)
	if !ok {
		return d, unknownField(d.NodeType(), key)
	}
	d.Base = b
	return d, err
}

// DefaultData returns the data a freshly dropped node of type t starts with.
func DefaultData(t NodeType) (NodeData, error) {
	base := Base{
		Label:       t.DisplayName(),
		Description: fmt.Sprintf("New %s node", t),
	}
	switch t {
	case NodeTypeUserInput:
		return UserInputData{Base: base}, nil
	case NodeTypeAPIInput:
		return APIInputData{Base: base}, nil
	case NodeTypeCreditCheck:
		return CreditCheckData{Base: base}, nil
	case NodeTypeScoreCalculation:
		return ScoreCalculationData{Base: base}, nil
	case NodeTypeCondition:
		return ConditionData{Base: base, Condition: OperatorEquals}, nil
	case NodeTypeApproval:
		return ApprovalData{Base: base}, nil
	case NodeTypeRejection:
		return RejectionData{Base: base}, nil
	case NodeTypeReview:
		return ReviewData{Base: base}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNodeType, t)
}

// decodeData builds the variant for t and lets decode fill it in.
func decodeData(t NodeType, decode func(any) error) (NodeData, error) {
	switch t {
	case NodeTypeUserInput:
		var d UserInputData
		err := decode(&d)
		return d, err
	case NodeTypeAPIInput:
		var d APIInputData
		err := decode(&d)
		return d, err
	case NodeTypeCreditCheck:
		var d CreditCheckData
		err := decode(&d)
		return d, err
	case NodeTypeScoreCalculation:
		var d ScoreCalculationData
		err := decode(&d)
		return d, err
	case NodeTypeCondition:
		var d ConditionData
		err := decode(&d)
		return d, err
	case NodeTypeApproval:
		var d ApprovalData
		err := decode(&d)
		return d, err
	case NodeTypeRejection:
		var d RejectionData
		err := decode(&d)
		return d, err
	case NodeTypeReview:
		var d ReviewData
		err := decode(&d)
		return d, err
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNodeType, t)
}

func unknownField(t NodeType, key string) error {
	return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, t, key)
}

func asString(key string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case nil:
		return "", nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidFieldValue, key, v)
}

func asBool(key string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidFieldValue, key, x)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %s expects a boolean, got %T", ErrInvalidFieldValue, key, v)
}

func asInt(key string, v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidFieldValue, key, x)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidFieldValue, key, x)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s expects an integer, got %T", ErrInvalidFieldValue, key, v)
}
