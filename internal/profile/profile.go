// Package profile implements the named bundle of engine-channel
// factories and media-context capacity a session is created against
// (SPEC_FULL.md §3 "Profile"), grounded on
// original_source/trunk/libs/mrcp-server/src/mrcp_server_session.c's
// mrcp_server_profile_t and on pkg/plugin/registry.go's
// register-by-name / get-by-name factory registry idiom.
package profile

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/otus/internal/channel"
)

// EngineChannelFactory builds the EngineChannel for one resource
// instance. The resource name is passed through so a single factory can
// serve multiple resource names if the engine supports that.
type EngineChannelFactory func(resourceName string) (channel.EngineChannel, error)

// Profile bundles the resource engines available to sessions created
// against it, plus the fixed capacity their media context is allocated
// with (spec.md §4.3 offer processing step 1: "create the media context
// (capacity 5)" — the capacity is itself profile-configurable here,
// 5 is only the spec's example).
type Profile struct {
	Name            string
	ContextCapacity int

	mu        sync.RWMutex
	factories map[string]EngineChannelFactory
}

// New creates an empty profile. capacity must be large enough to hold
// every termination a session against this profile will ever attach
// (RTP terminations plus one engine termination per resource).
func New(name string, capacity int) *Profile {
	return &Profile{
		Name:            name,
		ContextCapacity: capacity,
		factories:       make(map[string]EngineChannelFactory),
	}
}

// RegisterResource wires resourceName to factory. Panics on a duplicate
// registration within the same profile — a configuration bug caught at
// startup, matching RegisterCapturer's panic-on-duplicate contract.
func (p *Profile) RegisterResource(resourceName string, factory EngineChannelFactory) {
	if resourceName == "" {
		panic("profile: resource name cannot be empty")
	}
	if factory == nil {
		panic("profile: factory cannot be nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.factories[resourceName]; exists {
		panic(fmt.Sprintf("profile %q: resource %q already registered", p.Name, resourceName))
	}
	p.factories[resourceName] = factory
}

// Resolve looks up the factory for resourceName (spec.md §4.3
// "resolve resource_name to a resource handle"). Returns
// ErrUnknownResource if unregistered.
func (p *Profile) Resolve(resourceName string) (EngineChannelFactory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.factories[resourceName]
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", resourceName, ErrUnknownResource)
	}
	return f, nil
}

// Resources returns the sorted list of resource names this profile serves.
func (p *Profile) Resources() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.factories))
	for name := range p.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry is the process-wide set of named profiles, looked up by
// name through Get (internal/daemon's NewSession takes the profile
// name from its caller; offer descriptors carry no profile field).
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Profile)
)

// Register adds p to the process-wide registry, keyed by p.Name.
// Panics on a duplicate name, same rationale as RegisterResource.
func Register(p *Profile) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[p.Name]; exists {
		panic(fmt.Sprintf("profile: %q already registered", p.Name))
	}
	registry[p.Name] = p
}

// Get looks up a registered profile by name.
func Get(name string) (*Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	return p, ok
}
