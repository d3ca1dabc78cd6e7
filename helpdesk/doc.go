// Package helpdesk assembles the reference customer support mesh: a
// coordinator router in front of billing, order, technical support and
// escalation specialists, wired to the mocked backend systems.
//
// The tree mirrors a real support floor. The coordinator classifies every
// request and dispatches it; the technical support pipeline fans out to web,
// knowledge base and ticket history searchers in parallel before a
// diagnosis agent synthesizes their findings; the escalation specialist
// opens tickets when automated help runs out.
//
// Use New to get a fully wired supportmesh.Mesh, or NewTree when embedding
// the agent tree in a custom runner.
package helpdesk
