// Package registry provides the central "glue" for the module system.
//
// The Registry stores the mapping between the node type names used in
// workflow definitions (e.g., "http_request") and the compiled Go executors
// that implement them. Modules register their executors at application
// startup; the engine looks them up by type while a workflow runs.
package registry
