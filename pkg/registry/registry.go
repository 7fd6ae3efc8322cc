package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
)

// Entry describes a registered program.
type Entry struct {
	Name        string
	Description string
	Program     ports.Program
}

// StackConfined reports whether the program supports in-place reset.
func (e Entry) StackConfined() bool {
	return ports.IsStackConfined(e.Program)
}

// Registry manages the programs a session can wrap by name.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]Entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		programs: make(map[string]Entry),
	}
}

// Register adds a program to the registry.
// If a program with the same name exists, it is overwritten.
func (r *Registry) Register(name, description string, p ports.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[name] = Entry{Name: name, Description: description, Program: p}
}

// Lookup returns the program registered under name.
func (r *Registry) Lookup(name string) (ports.Program, error) {
	r.mu.RLock()
	e, ok := r.programs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProgram, name)
	}
	return e.Program, nil
}

// List returns every entry sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.programs))
	for _, e := range r.programs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}
