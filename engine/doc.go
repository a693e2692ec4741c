// Package engine runs a linked module graph inside a goja VM.
//
// Linking is done by esbuild: a plugin answers every resolve and load request
// with the host's SpecifierResolver and ModuleLoader, and the bundle it emits
// is evaluated as one async function so that top-level await works.
//
// The VM is owned by whichever goroutine calls Evaluate and RunEventLoop.
// Host op calls are handed to a single worker goroutine in the order scripts
// issue them, and their completions come back through a FIFO job queue
// drained by RunEventLoop. Promises for host ops therefore settle in call
// order. Timer callbacks share the same queue.
package engine
