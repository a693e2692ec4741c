package ports

// OpSchemaRegistry manages JSON schemas for host op payloads.
type OpSchemaRegistry interface {
	// Register adds a schema generated from a Go struct.
	Register(name string, model interface{}) error

	// GetSchema retrieves the JSON Schema registered under name.
	GetSchema(name string) (string, bool)
}
