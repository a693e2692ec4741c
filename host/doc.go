// Package host runs a script file end to end.
//
// A Runner owns the host side of a run: the buffer scripts write to, the
// registry of host ops over it, and the schemas of those ops. Each call to
// Run builds a fresh engine, links the entry module's graph, evaluates it and
// drains outstanding work before reporting the outcome.
package host
