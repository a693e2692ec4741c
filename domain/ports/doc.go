// Package ports defines the interfaces the script host is assembled from.
// The loader pipeline, the engine and the runner depend on these abstractions;
// application and infrastructure packages provide the implementations.
package ports
