// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside SupportMesh.
//
// Core goals:
//   - Normalize completion and tool / function call representation
//     (ToolDefinition, ToolCall) across vendors
//   - Expose single-label classification for router nodes as a first-class
//     operation (Classify) so routing never parses free-form prose
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, the turn processor) remain decoupled
// from vendor SDKs.
package model
