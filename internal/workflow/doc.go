// Package workflow is the graph model of the application: nodes with typed
// ports and property bags, connectors between ports, and the definition that
// aggregates them.
//
// The package holds no execution logic. It answers structural questions
// (starting nodes, upstream and downstream neighbours, port ownership) and
// validates a definition before it is handed to the engine.
package workflow
