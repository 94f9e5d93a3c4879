// Package validation checks imported workflow documents and HTTP request
// bodies with go-playground/validator and reports problems as field errors.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/flowgraph/creditflow/internal/core/workflow"
)

// Validate is the shared validator instance with the CreditFlow tags
// registered.
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("node_type", validateNodeType); err != nil {
		panic(err)
	}
	if err := Validate.RegisterValidation("condition_operator", validateConditionOperator); err != nil {
		panic(err)
	}

	// Report fields under their JSON names where they have one.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return lowerFirst(fld.Name)
		}
		return name
	})
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates s against its validate tags. Failures come back
// as ValidationErrors.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Value:   fe.Value(),
			Message: errorMessage(fe),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace, leaving
// paths such as nodes[2].type.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// errorMessage returns a human-readable error message
func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "node_type":
		return "must be a known node type"
	case "condition_operator":
		return "must be one of equals, greater, less"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

func validateNodeType(fl validator.FieldLevel) bool {
	return workflow.NodeType(fl.Field().String()).Valid()
}

func validateConditionOperator(fl validator.FieldLevel) bool {
	switch workflow.ConditionOperator(fl.Field().String()) {
	case workflow.OperatorEquals, workflow.OperatorGreater, workflow.OperatorLess:
		return true
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// errorResponse is the JSON body written for rejected input.
type errorResponse struct {
	Errors ValidationErrors `json:"errors"`
	Count  int              `json:"count"`
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	if errs == nil {
		errs = ValidationErrors{}
	}
	return json.Marshal(errorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors unmarshals validation errors from JSON
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Errors, nil
}
