// Package endpoint resolves a listener (port, tenant) pair to a logical endpoint identity.
//
// The identity namespaces subscriber-path groups: two inbound endpoints that both
// expose a "/chat" path never deliver to each other's subscribers because their
// groups live under different identities.
//
// Example usage:
//
//	identity := directory.Resolve(8080, "acme")
//	registry.Broadcast(ctx, identity, "/chat", frame)
package endpoint
