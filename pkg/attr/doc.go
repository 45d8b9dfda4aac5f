// Package attr implements the attribute store: a fixed, ordered set of named,
// bounded integer values that can be read and written as text.
//
// # Read and Write Contract
//
// Reading an attribute yields
//
//	Current Data: <value>\n
//
// Writing parses the payload as a base-10 signed integer (an optional sign
// and one trailing newline are accepted) and applies it only when it lies
// within the attribute's [Min, Max] bounds. Writes always report the full
// payload length as consumed. Malformed or out-of-range input is recorded
// through the access logger and otherwise ignored, so callers that need to
// confirm a write must read the value back. SetStrict and Attribute.Write
// surface those failures instead, for callers that are not bound by the
// "always return the count" convention.
//
// # Lifetime
//
// A Store is built once from its definitions and never grows or shrinks.
// There is no package-level instance: the owner constructs it and hands the
// *Store to whatever publishes or serves it.
package attr
