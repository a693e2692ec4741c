// Package entities holds the value types shared by the loader, the engine and
// the runner: module sources, run states, the extension manifest and error details.
package entities
