// Package backend provides the mocked collaborator systems the help desk
// tools call into: a CRM, an order store, a knowledge base, a ticket
// system, a web search client and a solution guide.
//
// All stores are safe for concurrent tool calls. The fixture data is
// deliberately small and stable so routing and tool behavior stay
// reproducible in tests and demos; swap any store for a real integration
// by implementing the same methods.
package backend
