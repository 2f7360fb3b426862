// Package engine executes workflow definitions.
//
// An Engine runs one definition at a time. Nodes execute strictly one after
// another in dependency order (Kahn's algorithm seeded with the definition's
// starting nodes). Each node receives the merged output of its upstream
// nodes. The first failing node stops the run.
//
// In debug mode the engine pauses before any node that has a breakpoint and
// waits for Continue or Step, or for the run's context to be canceled.
// Progress is reported synchronously to subscribers as Events.
package engine
