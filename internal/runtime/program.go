package runtime

import (
	"sync"

	"solana-token-transfer/internal/solana"
)

// Program is a natively implemented on-chain program.
type Program interface {
	Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ic *InvokeContext, accounts []*AccountInfo, data []byte) error

// Process calls f.
func (f ProgramFunc) Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
	return f(ic, accounts, data)
}

// Registry maps program IDs to implementations.
type Registry struct {
	mu       sync.RWMutex
	programs map[solana.PublicKey]Program
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[solana.PublicKey]Program)}
}

// Register installs a program, replacing any previous registration.
func (r *Registry) Register(id solana.PublicKey, p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = p
}

// Get returns the program registered under id.
func (r *Registry) Get(id solana.PublicKey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// IDs returns every registered program ID.
func (r *Registry) IDs() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]solana.PublicKey, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	return ids
}
