package serialize

import (
	"slices"
	"sort"
)

// Constructor builds a component from its loaded kwargs. env is the value
// the Codec was configured with; it carries runtime collaborators such as
// credential resolvers that are never serialized.
type Constructor func(env any, k *Kwargs) (any, error)

// Entry binds one serialization id to its constructor.
type Entry struct {
	ID  []string
	New Constructor
}

// Registry maps serialization ids to constructors. It is immutable once
// built; Extend returns a copy.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds a registry from entries. Duplicate or empty ids are
// rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	if err := r.add(entries); err != nil {
		return nil, err
	}
	return r, nil
}

// Extend returns a new registry holding r's entries plus entries. Redefining
// an id already present is an error.
func (r *Registry) Extend(entries ...Entry) (*Registry, error) {
	out := &Registry{entries: make(map[string]Entry, len(r.entries)+len(entries))}
	for k, e := range r.entries {
		out.entries[k] = e
	}
	if err := out.add(entries); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) add(entries []Entry) error {
	for _, e := range entries {
		if len(e.ID) == 0 {
			return errorf("", "registry entry with empty id")
		}
		if e.New == nil {
			return errorf("", "registry entry %s has no constructor", IDString(e.ID))
		}
		key := IDString(e.ID)
		if _, dup := r.entries[key]; dup {
			return errorf("", "id %s is already registered", key)
		}
		r.entries[key] = Entry{ID: slices.Clone(e.ID), New: e.New}
	}
	return nil
}

// Lookup returns the entry registered for id.
func (r *Registry) Lookup(id []string) (Entry, bool) {
	e, ok := r.entries[IDString(id)]
	return e, ok
}

// IDs returns every registered id in lexical order.
func (r *Registry) IDs() [][]string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = slices.Clone(r.entries[k].ID)
	}
	return out
}

// Len returns the number of registered ids.
func (r *Registry) Len() int { return len(r.entries) }
