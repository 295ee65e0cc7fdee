// Package vm implements the object and class runtime of the avmrt bytecode
// virtual machine.
//
// This package contains:
//   - Qualified names, namespaces and multinames
//   - Per-class property tables (VTable) with slot and dispatch ids
//   - Generic object storage shared by every instance
//   - Executable dispatch for native and bytecode methods
//   - The class construction and linking pipeline
//   - A diagnostic call stack
//
// The bytecode loop itself is supplied by the host through the Interpreter
// interface; this package treats method bodies as opaque.
package vm
