// Package runner implements the turn processor for SupportMesh.
//
// The Runner is the single entry point into the orchestration tree: it owns
// the lifecycle of one conversational turn, from session lookup through root
// agent execution to history persistence and scratch retention. Turns on the
// same session are strictly serialized; distinct sessions process in
// parallel.
//
// # Responsibilities
//   - Session lookup and turn-gate acquisition
//   - Turn record creation and root agent invocation
//   - Failure classification into ProcessingError kinds, with a graceful
//     user-facing fallback reply
//   - History persistence (user + attributed assistant message per turn)
//   - Per-key scratch retention across the turn boundary
//
// See runner.go for the operational implementation details.
package runner
