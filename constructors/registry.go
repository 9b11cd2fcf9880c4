package constructors

import (
	"fmt"
	"reflect"
)

// Rule inspects a type position and either returns a Spec for it or nil to
// pass. Rules are consulted before the built-in shapes, newest scope first,
// in registration order within a scope.
type Rule func(ti TypeInfo) *Spec

// VariantBinding names one concrete alternative of an interface-typed field.
type VariantBinding struct {
	Tag  string
	Type reflect.Type
}

// Variant builds a binding for concrete type V under the given tag.
func Variant[V any](tag string) VariantBinding {
	return VariantBinding{Tag: tag, Type: reflect.TypeOf((*V)(nil)).Elem()}
}

type scope struct {
	rules    []Rule
	named    map[string]Spec
	variants map[reflect.Type][]VariantBinding
}

func newScope() *scope {
	return &scope{
		named:    map[string]Spec{},
		variants: map[reflect.Type][]VariantBinding{},
	}
}

// Registry resolves parsing rules for leaf arguments. It is an explicit value
// with stacked scopes: rules registered after Push apply only until the
// returned release function runs. A Registry is not safe for concurrent use;
// concurrent derivations must each use their own.
type Registry struct {
	scopes []*scope
}

// NewRegistry returns a registry with only the built-in shapes active.
func NewRegistry() *Registry {
	return &Registry{scopes: []*scope{newScope()}}
}

// Push opens a nested scope and returns the function that closes it. Closing
// removes every rule, named spec, and variant binding registered since the
// matching Push, on any exit path:
//
//	release := reg.Push()
//	defer release()
func (r *Registry) Push() (release func()) {
	r.scopes = append(r.scopes, newScope())
	depth := len(r.scopes)
	return func() {
		if len(r.scopes) >= depth {
			r.scopes = r.scopes[:depth-1]
		}
	}
}

func (r *Registry) top() *scope { return r.scopes[len(r.scopes)-1] }

// Rule registers a matching rule in the current scope.
func (r *Registry) Rule(rule Rule) {
	if rule == nil {
		return
	}
	r.top().rules = append(r.top().rules, rule)
}

// Named registers a spec under a name, for explicit per-field selection via
// the with= tag.
func (r *Registry) Named(name string, s Spec) {
	r.top().named[name] = s
}

// NamedSpec resolves a named spec, innermost scope first.
func (r *Registry) NamedSpec(name string) (Spec, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if s, ok := r.scopes[i].named[name]; ok {
			return s, true
		}
	}
	return Spec{}, false
}

// RegisterVariants binds the concrete alternatives of interface type I in
// the registry's current scope. Binding order is significant: leaf unions
// attempt conversion in this order, first success wins.
func RegisterVariants[I any](r *Registry, vs ...VariantBinding) {
	it := reflect.TypeOf((*I)(nil)).Elem()
	if it.Kind() != reflect.Interface {
		panic(fmt.Sprintf("constructors: RegisterVariants requires an interface type, got %s", it))
	}
	for _, v := range vs {
		if v.Type.Kind() != reflect.Interface && it.NumMethod() > 0 && !v.Type.Implements(it) && !reflect.PointerTo(v.Type).Implements(it) {
			panic(fmt.Sprintf("constructors: %s does not implement %s", v.Type, it))
		}
	}
	sc := r.top()
	sc.variants[it] = append(sc.variants[it], vs...)
}

// Variants returns the bindings registered for interface type t, outermost
// scope first so that base registrations keep their declared order.
func (r *Registry) Variants(t reflect.Type) []VariantBinding {
	var out []VariantBinding
	for _, sc := range r.scopes {
		out = append(out, sc.variants[t]...)
	}
	return out
}

// SpecFor resolves the parsing spec for a type position. Consultation order:
// user rules (newest scope first, registration order within a scope), then
// the built-in shapes. Explicit per-field overrides (with= tags) are applied
// by the caller before SpecFor is reached.
func (r *Registry) SpecFor(ti TypeInfo) (Spec, error) {
	return r.specFor(ti, true)
}

func (r *Registry) specFor(ti TypeInfo, top bool) (Spec, error) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		for _, rule := range r.scopes[i].rules {
			if s := rule(ti); s != nil {
				return *s, nil
			}
		}
	}
	s, err := builtinSpec(r, ti)
	if err != nil {
		return Spec{}, err
	}
	if !top && s.Nargs == Variadic {
		return Spec{}, &UnsupportedTypeError{Type: ti.Type, Reason: "nested sequence types are not supported"}
	}
	return s, nil
}
