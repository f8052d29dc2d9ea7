package endpoint

// Identity is the resolved key of a logical inbound endpoint
type Identity string

// Directory maps listener ports and tenants to endpoint identities.
type Directory interface {
	// Resolve returns the identity for (port, tenant). It is deterministic and never
	// fails: when no explicit mapping exists a default identity is returned.
	Resolve(port int, tenant string) Identity
}
