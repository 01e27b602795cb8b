package service

import (
	"fmt"
	"sync"

	"github.com/contractcheck/contractcheck/internal/core/ports"
	"github.com/contractcheck/contractcheck/internal/errors"
)

// ComponentRegistry holds the pluggable pieces of a verification run, keyed
// by the names they are selected with in the configuration.
type ComponentRegistry struct {
	mu         sync.RWMutex
	reporters  map[string]ports.Reporter
	publishers map[string]ports.ResultPublisher
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		reporters:  make(map[string]ports.Reporter),
		publishers: make(map[string]ports.ResultPublisher),
	}
}

func (r *ComponentRegistry) RegisterReporter(format string, reporter ports.Reporter) error {
	if reporter == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil reporter")
	}
	if format == "" {
		return errors.New(errors.CodeInternal, "reporter format cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reporters[format]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("reporter format '%s' already registered", format))
	}
	r.reporters[format] = reporter
	return nil
}

func (r *ComponentRegistry) GetReporter(format string) (ports.Reporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reporter, exists := r.reporters[format]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("reporter format '%s' not found", format))
	}
	return reporter, nil
}

func (r *ComponentRegistry) RegisterPublisher(name string, publisher ports.ResultPublisher) error {
	if publisher == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil publisher")
	}
	if name == "" {
		return errors.New(errors.CodeInternal, "publisher name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.publishers[name]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("publisher '%s' already registered", name))
	}
	r.publishers[name] = publisher
	return nil
}

func (r *ComponentRegistry) GetPublisher(name string) (ports.ResultPublisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	publisher, exists := r.publishers[name]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("publisher '%s' not found", name))
	}
	return publisher, nil
}
