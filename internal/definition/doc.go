// Package definition loads workflow definitions from HCL or YAML files.
//
// Both formats describe the same document: a list of named nodes, each with
// a type, optional stable ID, canvas position, breakpoint flag, properties and
// ports, plus a list of connectors written as "node.port" references. A
// directory is loaded by merging every definition file found beneath it.
package definition
