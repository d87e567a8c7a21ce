package schema

import (
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/gqlcompose"
)

// Registry maps type names to definitions. It is the single source of truth
// for the schema under construction.
type Registry struct {
	mu       sync.RWMutex
	types    map[string]*Type
	order    []string
	reporter gqlcompose.Reporter
}

// NewRegistry returns a registry holding the built-in types. Unsafe merges
// are reported to rep; a nil rep discards them.
func NewRegistry(rep gqlcompose.Reporter) *Registry {
	if rep == nil {
		rep = &gqlcompose.Recorder{}
	}
	r := &Registry{types: map[string]*Type{}, reporter: rep}
	for _, t := range builtinTypes() {
		r.insert(t)
	}
	return r
}

// Reporter returns the diagnostics sink of the registry.
func (r *Registry) Reporter() gqlcompose.Reporter { return r.reporter }

// Add registers t on behalf of plugin. If a type with the same name exists
// it is merged; a placeholder is replaced. The returned name is the
// registered type name.
func (r *Registry) Add(t *Type, plugin string, from CreatedFrom) (string, error) {
	if t == nil || t.Name == "" {
		return "", gqlcompose.NewConfigurationError("", "type definition without a name", nil)
	}
	if !t.Kind.Valid() {
		return "", gqlcompose.NewConfigurationError(t.Name, "type definition without a kind", nil)
	}
	if err := CheckTypeName(t.Name); err != nil {
		return "", err
	}
	stamp(t, plugin, from)

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.types[t.Name]
	switch {
	case !ok:
		r.insert(t)
	case existing.Extensions.IsPlaceholder():
		r.types[t.Name] = t
	default:
		if !isSafeMerge(existing, plugin) {
			r.reporter.Warn(mergeWarning(existing, plugin).Error())
		}
		if err := Merge(existing, t); err != nil {
			return "", err
		}
		t = existing
	}
	r.addPlaceholders(t)
	return t.Name, nil
}

// Set stores t without merging, replacing any type with the same name.
// Generated types are registered this way.
func (r *Registry) Set(t *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		r.types[t.Name] = t
	} else {
		r.insert(t)
	}
	r.addPlaceholders(t)
}

// AddPlaceholder registers a stand-in for a referenced but undefined type.
// It is a no-op if the name is already registered.
func (r *Registry) AddPlaceholder(name string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPlaceholder(name, kind)
}

func (r *Registry) addPlaceholder(name string, kind Kind) {
	if name == "" {
		return
	}
	if _, ok := r.types[name]; ok {
		return
	}
	p := NewType(name, kind)
	p.SetExtension(ExtPlaceholder, true)
	r.insert(p)
}

// addPlaceholders registers stand-ins for every type t references.
func (r *Registry) addPlaceholders(t *Type) {
	for _, name := range t.Interfaces {
		r.addPlaceholder(name, KindInterface)
	}
	for _, name := range t.Members {
		r.addPlaceholder(name, KindObject)
	}
	for _, f := range t.fields {
		kind := KindObject
		if t.Kind == KindInputObject {
			kind = KindInputObject
		}
		r.addPlaceholder(f.Type.BaseName(), kind)
		for _, a := range f.Args {
			r.addPlaceholder(a.Type.BaseName(), KindInputObject)
		}
	}
}

func (r *Registry) insert(t *Type) {
	r.types[t.Name] = t
	r.order = append(r.order, t.Name)
}

// stamp records provenance on t and on its fields that have none.
func stamp(t *Type, plugin string, from CreatedFrom) {
	if from != "" {
		t.SetExtension(ExtCreatedFrom, from)
	}
	if plugin != "" {
		t.SetExtension(ExtPlugin, plugin)
	}
	for _, f := range t.fields {
		if from != "" && !f.Extensions.Has(ExtCreatedFrom) {
			f.SetExtension(ExtCreatedFrom, from)
		}
		if plugin != "" && !f.Extensions.Has(ExtPlugin) {
			f.SetExtension(ExtPlugin, plugin)
		}
	}
}

// Get returns the named type, or nil.
func (r *Registry) Get(name string) *Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[name]
}

// Has reports whether a type, placeholder or not, is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Remove deletes the named type.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return
	}
	delete(r.types, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]*Type, 0, len(r.order))
	for _, n := range r.order {
		types = append(types, r.types[n])
	}
	return types
}

// ForEach calls fn for every type in registration order and stops at the
// first error. fn may add or remove types; it sees the set present when
// ForEach was called.
func (r *Registry) ForEach(fn func(*Type) error) error {
	for _, t := range r.Types() {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// Placeholders returns the names of unresolved placeholders.
func (r *Registry) Placeholders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, n := range r.order {
		if r.types[n].Extensions.IsPlaceholder() {
			names = append(names, n)
		}
	}
	return names
}

// Freeze verifies that no placeholder is left unresolved.
func (r *Registry) Freeze() error {
	if p := r.Placeholders(); len(p) > 0 {
		return gqlcompose.NewIntegrityViolation(
			fmt.Sprintf("%d referenced type(s) were never defined", len(p)), p...)
	}
	return nil
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{types: make(map[string]*Type, len(r.types)), reporter: r.reporter}
	for _, n := range r.order {
		c.insert(r.types[n].Clone())
	}
	return c
}
