// Package hostfuncs provides the host side of the script bridge: named host
// operations that take a JSON payload and answer with a JSON payload, the
// registry and middleware that dispatch them, and the shared text buffer the
// built-in operations act on.
//
// Nothing here depends on the script engine; the engine package marshals
// script arguments into payloads and hands them to a HandlerRegistry.
package hostfuncs
