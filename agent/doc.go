// Package agent contains the node implementations that make up a SupportMesh
// dispatch tree. The package covers three concerns:
//
//  1. Base hierarchy plumbing (BaseAgent, Find, Info)
//  2. Coordination nodes (SequentialAgent, ParallelAgent, RouterAgent)
//  3. The model-backed, tool-calling worker (LeafAgent)
//
// Design principles:
//   - Minimal hidden global state: explicit wiring via TurnContext
//   - Composability: nodes nest arbitrarily via SetChildren
//   - Observability: logging hooks at dispatch, tool rounds and completion
//   - Extensibility: embed BaseAgent; implement Execute plus any custom API
//
// Execution model:
//   - A node's Execute receives a *core.TurnContext scoped to its branch
//   - Composite nodes (sequential, parallel, router) coordinate child Executes
//   - LeafAgent integrates with the model and tool packages to produce a reply
//
// Persistence, model specifics and the tool registry live in their own
// packages to avoid cyclic deps.
package agent
