package leads

import (
	"strings"

	"github.com/skillverse/leadgen/internal/phone"
)

// Registry is the in-memory dedup cache: normalized phone digit strings and
// lowercase names of every lead known to the store, grown as records are
// accepted during a run. It is a cache of store state, not the source of
// truth; acceptance still goes through Store.AppendIfNew.
//
// A Registry is owned by a single pipeline run and is not safe for concurrent
// use.
type Registry struct {
	phones map[string]struct{}
	names  map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		phones: make(map[string]struct{}),
		names:  make(map[string]struct{}),
	}
}

// Seed merges the key sets loaded from the store.
func (r *Registry) Seed(phones, names map[string]struct{}) {
	for p := range phones {
		if p != "" {
			r.phones[p] = struct{}{}
		}
	}
	for n := range names {
		if n != "" {
			r.names[strings.ToLower(n)] = struct{}{}
		}
	}
}

// SeenPhone reports whether the phone's digit form is already known. Blank
// phones never match; phone is only a key when present.
func (r *Registry) SeenPhone(raw string) bool {
	digits := phone.Digits(raw)
	if digits == "" {
		return false
	}
	_, ok := r.phones[digits]
	return ok
}

// SeenName reports whether the name's normalized form is already known.
func (r *Registry) SeenName(name string) bool {
	key := nameKey(name)
	if key == "" {
		return false
	}
	_, ok := r.names[key]
	return ok
}

// Add records an accepted lead's keys.
func (r *Registry) Add(lead Lead) {
	if digits := phone.Digits(lead.Phone); digits != "" {
		r.phones[digits] = struct{}{}
	}
	if key := nameKey(lead.Name); key != "" {
		r.names[key] = struct{}{}
	}
}

// Size returns the number of known phone and name keys.
func (r *Registry) Size() (phones, names int) {
	return len(r.phones), len(r.names)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
