// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: loading a
// workflow definition, wiring the debugger, running the engine and reporting
// the outcome. It is decoupled from any specific entrypoint like a CLI.
package app
