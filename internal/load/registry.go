package load

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Registry holds the descriptors by table name.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]Descriptor)}
}

// DefaultRegistry returns the embedded descriptors, with entries from
// overridePath (when non-empty) replacing those of the same table.
func DefaultRegistry(overridePath string) (*Registry, error) {
	ds, err := ParseDescriptors(defaultDescriptors)
	if err != nil {
		return nil, fmt.Errorf("embedded descriptors: %w", err)
	}
	r := NewRegistry()
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if overridePath == "" {
		return r, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read descriptors: %w", err)
	}
	overrides, err := ParseDescriptors(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", overridePath, err)
	}
	for _, d := range overrides {
		r.Override(d)
	}
	return r, nil
}

// Register adds a descriptor. A table may be registered once.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[d.Table]; exists {
		return fmt.Errorf("table already registered: %s", d.Table)
	}
	r.tables[d.Table] = d
	return nil
}

// Override adds or replaces a descriptor.
func (r *Registry) Override(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[d.Table] = d
}

// Get returns the descriptor of table.
func (r *Registry) Get(table string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tables[table]
	return d, ok
}

// MustGet is Get for tables the loaders name in code. A missing entry is a
// programming error.
func (r *Registry) MustGet(table string) Descriptor {
	d, ok := r.Get(table)
	if !ok {
		panic(fmt.Sprintf("no descriptor for table %s", table))
	}
	return d
}

// All returns every descriptor sorted by table name.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.tables))
	for _, d := range r.tables {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Table < result[j].Table
	})
	return result
}

// BySchema returns the descriptors of one schema sorted by table name.
func (r *Registry) BySchema(schema string) []Descriptor {
	var result []Descriptor
	for _, d := range r.All() {
		if d.Schema() == schema {
			result = append(result, d)
		}
	}
	return result
}

// Schemas returns the distinct schema names, sorted.
func (r *Registry) Schemas() []string {
	seen := make(map[string]bool)
	var schemas []string
	for _, d := range r.All() {
		if s := d.Schema(); !seen[s] {
			seen[s] = true
			schemas = append(schemas, s)
		}
	}
	return schemas
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
