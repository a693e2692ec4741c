// Package registry keeps the JSON schemas of host op payloads.
package registry

import (
	"fmt"
	"sync"

	"github.com/reglet-dev/runjs/application/schema"
	"github.com/reglet-dev/runjs/domain/ports"
)

// Key suffixes for the two payloads of an op.
const (
	RequestSuffix  = ".request"
	ResponseSuffix = ".response"
)

// Registry implements ports.OpSchemaRegistry. A name can be registered once.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]string
}

var _ ports.OpSchemaRegistry = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]string),
	}
}

// Register stores the schema generated from model under name.
func (r *Registry) Register(name string, model interface{}) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	data, err := schema.GenerateSchema(model)
	if err != nil {
		return fmt.Errorf("register schema %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("schema %q already registered", name)
	}
	r.schemas[name] = string(data)
	return nil
}

// RegisterOp stores the request and response schemas of one op.
func (r *Registry) RegisterOp(op string, request, response interface{}) error {
	if err := r.Register(op+RequestSuffix, request); err != nil {
		return err
	}
	return r.Register(op+ResponseSuffix, response)
}

// GetSchema retrieves the JSON Schema registered under name.
func (r *Registry) GetSchema(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}
