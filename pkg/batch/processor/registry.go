package processor

import (
	"fmt"
	"sync"

	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
	"github.com/tigerroll/swell/pkg/batch/support/util/logger"
)

const moduleName = "processor"

// Registry holds the named record processors available to the engine.
// Registration happens during application wiring; resolution happens on every
// dispatch.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]RecordProcessor
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]RecordProcessor),
	}
}

// Register adds a processor under its Name. Registering the same name twice
// is a wiring bug and fails.
func (r *Registry) Register(p RecordProcessor) error {
	if p == nil {
		return exception.NewBatchError(moduleName, "cannot register nil processor", nil, false, false)
	}
	name := p.Name()
	if name == "" {
		return exception.NewBatchError(moduleName, "cannot register processor with empty name", nil, false, false)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[name]; exists {
		return exception.NewBatchError(moduleName, fmt.Sprintf("processor '%s' is already registered", name), nil, false, false)
	}
	r.processors[name] = p
	logger.Debugf("Record processor '%s' registered.", name)
	return nil
}

// Resolve looks up a processor by name.
func (r *Registry) Resolve(name string) (RecordProcessor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	if !ok {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("no record processor registered under '%s'", name), ErrProcessorNotFound, false, false)
	}
	return p, nil
}

// Names returns the registered processor names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	return names
}
