// Package core provides the foundational domain types, interfaces and execution
// contexts used by SupportMesh. It defines the core abstractions for:
//
//   - Agents (nodes of the orchestration tree: leaf, sequential, parallel, router)
//   - Sessions (stateful conversational containers with profile, scratch and history)
//   - Turns (one processed user exchange with routing trace and tool records)
//   - TurnContext / ToolContext (scoped execution, scratch partitioning, tracing)
//   - The pluggable session store and profile bootstrap boundaries
//
// The package intentionally keeps implementation concerns (composition
// semantics, model adapters, concrete stores) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
