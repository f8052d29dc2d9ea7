package endpoint

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rmacdonaldsmith/wsgateway/pkg/endpoint"
)

// DefaultTenant is used when a listener does not name a tenant
const DefaultTenant = "default"

var (
	// ErrInvalidPort is returned when registering a port outside 1-65535
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrEmptyName is returned when registering an empty endpoint name
	ErrEmptyName = errors.New("endpoint name cannot be empty")
)

type key struct {
	port   int
	tenant string
}

// StaticDirectory implements endpoint.Directory from explicitly registered listeners
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[key]endpoint.Identity
}

// NewStaticDirectory creates an empty directory
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		entries: make(map[key]endpoint.Identity),
	}
}

// Register maps (port, tenant) to the endpoint name. Re-registering replaces the name.
func (d *StaticDirectory) Register(port int, tenant, name string) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if name == "" {
		return ErrEmptyName
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key{port: port, tenant: normalizeTenant(tenant)}] = endpoint.Identity(name)
	return nil
}

// Unregister removes the mapping for (port, tenant)
func (d *StaticDirectory) Unregister(port int, tenant string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key{port: port, tenant: normalizeTenant(tenant)})
}

// Resolve returns the registered identity, or "<tenant>:<port>" when none is registered.
func (d *StaticDirectory) Resolve(port int, tenant string) endpoint.Identity {
	tenant = normalizeTenant(tenant)

	d.mu.RLock()
	identity, ok := d.entries[key{port: port, tenant: tenant}]
	d.mu.RUnlock()

	if ok {
		return identity
	}
	return DefaultIdentity(port, tenant)
}

// DefaultIdentity is the identity of an unregistered listener
func DefaultIdentity(port int, tenant string) endpoint.Identity {
	return endpoint.Identity(fmt.Sprintf("%s:%d", normalizeTenant(tenant), port))
}

func normalizeTenant(tenant string) string {
	if tenant == "" {
		return DefaultTenant
	}
	return tenant
}

var _ endpoint.Directory = (*StaticDirectory)(nil)
