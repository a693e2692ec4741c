package entities

import "fmt"

// ErrorDetail is the flat, serializable form of any run failure.
// Type is one of "resolution", "classification", "io", "transpile",
// "evaluation", "usage", "config", "schema" or "internal".
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	// Code narrows Type: the file extension, the I/O step, the config field.
	Code string `json:"code,omitempty"`
	// Stack is the script stack for evaluation failures.
	Stack []byte `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}
