package pos

import (
	"sync"

	"github.com/posledger/backend/internal/domain/possync"
)

// Registry maps POS systems to their gateway adapters
type Registry struct {
	mu       sync.RWMutex
	gateways map[possync.POSSystem]possync.POSGateway
}

// NewRegistry creates an empty gateway registry
func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[possync.POSSystem]possync.POSGateway),
	}
}

// Register binds a gateway to a POS system, replacing any previous binding
func (r *Registry) Register(system possync.POSSystem, gateway possync.POSGateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[system] = gateway
}

// Gateway returns the gateway for the given POS system
func (r *Registry) Gateway(system possync.POSSystem) (possync.POSGateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[system]
	if !ok {
		return nil, possync.ErrGatewayNotRegistered
	}
	return gw, nil
}

// Systems returns the registered systems
func (r *Registry) Systems() []possync.POSSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	systems := make([]possync.POSSystem, 0, len(r.gateways))
	for system := range r.gateways {
		systems = append(systems, system)
	}
	return systems
}

// Ensure Registry implements POSGatewayRegistry
var _ possync.POSGatewayRegistry = (*Registry)(nil)
