package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Config holds validation configuration
type Config struct {
	// MaxErrors caps the number of errors reported; 0 reports all.
	MaxErrors int `json:"max_errors" yaml:"max_errors"`
	// MaxBodyBytes caps the request body size; 0 means 1 MiB.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// DefaultConfig returns default validation configuration
func DefaultConfig() *Config {
	return &Config{MaxErrors: 10, MaxBodyBytes: 1 << 20}
}

type bodyKey struct{}

// Middleware provides validation middleware for HTTP handlers
type Middleware struct {
	config *Config
}

// NewMiddleware creates a new validation middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	return &Middleware{config: config}
}

// ValidateJSON decodes the request body into a new value of structType's
// type, validates it and hands it to next through the request context.
// Retrieve it with Body.
func (m *Middleware) ValidateJSON(structType interface{}) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, m.config.MaxBodyBytes))
			if err := dec.Decode(val); err != nil {
				m.WriteErrors(w, http.StatusBadRequest, ValidationErrors{{
					Field:   "request_body",
					Message: fmt.Sprintf("invalid JSON: %v", err),
				}})
				return
			}

			if err := ValidateStruct(val); err != nil {
				var verrs ValidationErrors
				if errors.As(err, &verrs) {
					m.WriteErrors(w, http.StatusBadRequest, verrs)
					return
				}
				m.WriteErrors(w, http.StatusInternalServerError, ValidationErrors{{
					Field:   "validation",
					Message: "validation failed",
				}})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, val)))
		})
	}
}

// Body returns the request body decoded by ValidateJSON.
func Body[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(bodyKey{}).(*T)
	return v, ok
}

// WriteErrors writes validation errors as a JSON response, truncated to the
// configured maximum.
func (m *Middleware) WriteErrors(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	if m.config.MaxErrors > 0 && len(errs) > m.config.MaxErrors {
		errs = errs[:m.config.MaxErrors]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, err := MarshalValidationErrors(errs)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}
	_, _ = w.Write(data)
}
