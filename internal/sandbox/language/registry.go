package language

import (
	"fmt"
	"sort"
	"sync"

	appErr "coderun/pkg/errors"
)

// Info describes a supported language for listings.
type Info struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// advertised is the order languages are listed in.
var advertised = []string{"matlab", "python2", "python3", "java", "c"}

// Registry maps language identifiers onto variants. Lookups ignore case.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]Language
	order []string
}

// NewRegistry builds the stock variants with optional per-language overrides.
func NewRegistry(overrides map[string]Override) (*Registry, error) {
	toolchains := DefaultToolchains()
	for id, o := range overrides {
		key := normalizeID(id)
		tc, ok := toolchains[key]
		if !ok {
			return nil, appErr.Newf(appErr.LanguageNotSupported, "override for unknown language %q", id)
		}
		applied, err := tc.Apply(o)
		if err != nil {
			return nil, err
		}
		toolchains[key] = applied
	}

	r := &Registry{langs: make(map[string]Language)}
	for _, l := range []Language{
		NewMatlab(toolchains["matlab"]),
		NewPython2(toolchains["python2"]),
		NewPython3(toolchains["python3"]),
		NewJava(toolchains["java"]),
		NewC(toolchains["c"]),
	} {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustDefault returns the stock registry.
func MustDefault() *Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a variant. Identifiers must be unique ignoring case.
func (r *Registry) Register(l Language) error {
	if l == nil {
		return fmt.Errorf("language is nil")
	}
	id := normalizeID(l.ID())
	if id == "" {
		return appErr.ValidationError("language_id", "required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.langs[id]; exists {
		return fmt.Errorf("language %q already registered", id)
	}
	r.langs[id] = l
	r.order = append(r.order, id)
	return nil
}

// Get returns the variant for id or a LanguageNotSupported error.
func (r *Registry) Get(id string) (Language, error) {
	r.mu.RLock()
	l, ok := r.langs[normalizeID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", id).
			WithDetail("language_id", id)
	}
	return l, nil
}

// IDs lists the supported identifiers, stock languages first in their
// advertised order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rank := make(map[string]int, len(advertised))
	for i, id := range advertised {
		rank[id] = i
	}
	ids := append([]string(nil), r.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		ri, iok := rank[ids[i]]
		rj, jok := rank[ids[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return false
		}
	})
	return ids
}

// Describe lists id and version of every supported language.
func (r *Registry) Describe() []Info {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, Info{ID: id, Version: r.langs[id].Version()})
	}
	return out
}
