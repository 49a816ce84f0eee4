// Package registry tracks the models known to the system. A ModelRegistry is
// an immutable snapshot; every mutating operation returns a new registry and
// leaves the receiver untouched.
package registry

import (
	"sort"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/immutable"
)

// ModelRegistry is an immutable snapshot of model metadata.
type ModelRegistry struct {
	entries map[string]core.ModelEntry
}

// New creates a registry from initial entries. Later duplicates win.
func New(entries ...core.ModelEntry) *ModelRegistry {
	m := make(map[string]core.ModelEntry, len(entries))
	for _, e := range entries {
		m[e.ID] = e
	}
	return &ModelRegistry{entries: m}
}

// All returns every entry, sorted by ID for deterministic iteration.
func (r *ModelRegistry) All() []core.ModelEntry {
	out := make([]core.ModelEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the entry for id.
func (r *ModelRegistry) Get(id string) (core.ModelEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Active returns all active entries.
func (r *ModelRegistry) Active() []core.ModelEntry {
	var out []core.ModelEntry
	for _, e := range r.All() {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// ActiveIDs returns the IDs of all active entries.
func (r *ModelRegistry) ActiveIDs() []string {
	active := r.Active()
	ids := make([]string, len(active))
	for i, e := range active {
		ids[i] = e.ID
	}
	return ids
}

// ByCapability returns active entries with the given capability.
func (r *ModelRegistry) ByCapability(cap core.Capability) []core.ModelEntry {
	var out []core.ModelEntry
	for _, e := range r.Active() {
		for _, c := range e.Capabilities {
			if c == cap {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ByTier returns active entries in the given tier.
func (r *ModelRegistry) ByTier(tier core.ModelTier) []core.ModelEntry {
	var out []core.ModelEntry
	for _, e := range r.Active() {
		if e.Tier == tier {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the number of known models.
func (r *ModelRegistry) Size() int {
	return len(r.entries)
}

// Register returns a new registry with entry added or replaced.
func (r *ModelRegistry) Register(entry core.ModelEntry) *ModelRegistry {
	return &ModelRegistry{entries: immutable.MapSet(r.entries, entry.ID, entry)}
}

// Activate returns a new registry with the model marked active. Unknown IDs
// are a no-op.
func (r *ModelRegistry) Activate(id string) *ModelRegistry {
	return r.update(id, func(e core.ModelEntry) core.ModelEntry {
		e.Active = true
		return e
	})
}

// Deactivate returns a new registry with the model marked inactive.
func (r *ModelRegistry) Deactivate(id string) *ModelRegistry {
	return r.update(id, func(e core.ModelEntry) core.ModelEntry {
		e.Active = false
		return e
	})
}

// UpdateCapabilities returns a new registry with the model's capability tags
// replaced.
func (r *ModelRegistry) UpdateCapabilities(id string, caps []core.Capability) *ModelRegistry {
	return r.update(id, func(e core.ModelEntry) core.ModelEntry {
		e.Capabilities = append([]core.Capability(nil), caps...)
		return e
	})
}

func (r *ModelRegistry) update(id string, fn func(core.ModelEntry) core.ModelEntry) *ModelRegistry {
	if _, ok := r.entries[id]; !ok {
		return r
	}
	return &ModelRegistry{entries: immutable.MapUpdate(r.entries, id, fn)}
}
