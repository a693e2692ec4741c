// Package errors provides domain-specific error types for the script host.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/runjs/domain/entities"
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// ResolutionError is returned when a specifier and its referrer cannot be
// turned into an absolute module identifier.
type ResolutionError struct {
	Err       error
	Specifier string
	Referrer  string
}

func (e *ResolutionError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("cannot resolve %q from %q: %v", e.Specifier, e.Referrer, e.Err)
	}
	return fmt.Sprintf("cannot resolve %q: %v", e.Specifier, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ResolutionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "resolution", Code: e.Specifier}
}

// ClassificationError reports a module whose extension maps to no load decision.
type ClassificationError struct {
	Identifier string
	Extension  string
}

func (e *ClassificationError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "<none>"
	}
	return fmt.Sprintf("unknown extension %s for module %s", ext, e.Identifier)
}

// ToErrorDetail implements DetailedError.
func (e *ClassificationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "classification", Code: e.Extension}
}

// IoError represents a failure to obtain a module's text.
type IoError struct {
	Err        error
	Identifier string
	Op         string // "read", "decode", "locate"
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Identifier, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *IoError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "io", Code: e.Op}
}

// TranspileError carries the diagnostics of a failed source transformation.
type TranspileError struct {
	Err        error
	Identifier string
	MediaType  string
	Messages   []string
}

func (e *TranspileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transpile %s (%s) failed", e.Identifier, e.MediaType)
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TranspileError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TranspileError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transpile", Code: e.MediaType}
}

// EvaluationError is a script-level failure raised while the module graph runs.
type EvaluationError struct {
	Err        error
	Identifier string
	Message    string
	Stack      string
}

func (e *EvaluationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Identifier != "" {
		return fmt.Sprintf("%s (evaluating %s)", msg, e.Identifier)
	}
	return msg
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EvaluationError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "evaluation"}
	if e.Stack != "" {
		detail.Stack = []byte(e.Stack)
	}
	return detail
}

// UsageError reports CLI misuse. It is raised before any engine exists.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return e.Usage
}

// ToErrorDetail implements DetailedError.
func (e *UsageError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "usage"}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// SchemaError represents a schema generation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "schema", Code: e.Type}
}
