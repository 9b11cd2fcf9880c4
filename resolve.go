package tyro

import (
	"encoding"
	"reflect"

	"github.com/mirceamironenco/tyro/constructors"
)

// Kind classifies a type position into the closed set of shapes the schema
// builder understands.
type Kind int

const (
	KindPrimitive Kind = iota // Leaf consuming tokens via a constructor spec.
	KindLiteral               // Leaf restricted to an enumerated choice set.
	KindOptional              // Pointer; absent is the zero state.
	KindSequence              // Slice; variable token count.
	KindTuple                 // Fixed-arity array or tuple-tagged struct.
	KindMapping               // Map; alternating key/value tokens.
	KindStruct                // Nested structure; becomes a group.
	KindChoice                // Interface whose variants are all structures.
	KindUnionLeaf             // Interface whose variants are all leaves.
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindLiteral:
		return "literal"
	case KindOptional:
		return "optional"
	case KindSequence:
		return "sequence"
	case KindTuple:
		return "tuple"
	case KindMapping:
		return "mapping"
	case KindStruct:
		return "struct"
	case KindChoice:
		return "choice"
	case KindUnionLeaf:
		return "union"
	}
	return "unknown"
}

// TypeDescriptor is the canonical description of a type position. Resolution
// is idempotent: resolving the same type against the same registry yields an
// equal descriptor.
type TypeDescriptor struct {
	Kind     Kind
	Type     reflect.Type
	Elem     *TypeDescriptor   // Optional/Sequence/Tuple element.
	Key, Val *TypeDescriptor   // Mapping key and value.
	Variants []VariantDesc     // Choice/UnionLeaf alternatives, in binding order.
	Choices  []string          // Literal values.
}

// VariantDesc pairs a union tag with its resolved alternative.
type VariantDesc struct {
	Tag  string
	Desc *TypeDescriptor
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// resolver normalizes raw reflect types into TypeDescriptors. It keeps a
// per-derivation cache (resolution is idempotent within a derivation) and a
// visited set that turns self-referential types into CyclicTypeError instead
// of unbounded recursion.
type resolver struct {
	reg      *constructors.Registry
	cache    map[reflect.Type]*TypeDescriptor
	visiting map[reflect.Type]bool
}

func newResolver(reg *constructors.Registry) *resolver {
	return &resolver{
		reg:      reg,
		cache:    map[reflect.Type]*TypeDescriptor{},
		visiting: map[reflect.Type]bool{},
	}
}

// ResolveType resolves a raw type into its canonical descriptor using the
// given registry for union variant bindings. Exposed for schema tooling and
// tests; Parse performs the same resolution internally.
func ResolveType(reg *constructors.Registry, t reflect.Type) (*TypeDescriptor, error) {
	if reg == nil {
		reg = constructors.NewRegistry()
	}
	d, serr := newResolver(reg).resolve(t, "")
	if serr != nil {
		return nil, serr
	}
	return d, nil
}

func (rs *resolver) resolve(t reflect.Type, path string) (*TypeDescriptor, *SchemaError) {
	if d, ok := rs.cache[t]; ok {
		return d, nil
	}
	if rs.visiting[t] {
		return nil, &SchemaError{Code: CodeCyclicType, Path: path, Type: t,
			Message: "self-referential types cannot be flattened into arguments"}
	}
	rs.visiting[t] = true
	defer delete(rs.visiting, t)

	d, serr := rs.resolveUncached(t, path)
	if serr != nil {
		return nil, serr
	}
	rs.cache[t] = d
	return d, nil
}

func (rs *resolver) resolveUncached(t reflect.Type, path string) (*TypeDescriptor, *SchemaError) {
	switch t.Kind() {
	case reflect.Pointer:
		elem, serr := rs.resolve(t.Elem(), path)
		if serr != nil {
			return nil, serr
		}
		return &TypeDescriptor{Kind: KindOptional, Type: t, Elem: elem}, nil

	case reflect.Slice:
		elem, serr := rs.resolve(t.Elem(), path)
		if serr != nil {
			return nil, serr
		}
		if elem.Kind == KindStruct || elem.Kind == KindChoice {
			return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t,
				Message: "sequences of nested structures are not supported"}
		}
		return &TypeDescriptor{Kind: KindSequence, Type: t, Elem: elem}, nil

	case reflect.Array:
		elem, serr := rs.resolve(t.Elem(), path)
		if serr != nil {
			return nil, serr
		}
		if elem.Kind == KindStruct || elem.Kind == KindChoice {
			return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t,
				Message: "arrays of nested structures are not supported"}
		}
		return &TypeDescriptor{Kind: KindTuple, Type: t, Elem: elem}, nil

	case reflect.Map:
		key, serr := rs.resolve(t.Key(), path)
		if serr != nil {
			return nil, serr
		}
		val, serr := rs.resolve(t.Elem(), path)
		if serr != nil {
			return nil, serr
		}
		return &TypeDescriptor{Kind: KindMapping, Type: t, Key: key, Val: val}, nil

	case reflect.Struct:
		// Types with their own text codec are leaves, time.Time included.
		if reflect.PointerTo(t).Implements(textUnmarshalerType) {
			return &TypeDescriptor{Kind: KindPrimitive, Type: t}, nil
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			meta := parseFieldMeta(sf)
			if meta.Skip || meta.Tuple {
				continue
			}
			fpath := joinPath(path, resolveFieldName(sf, meta))
			if _, serr := rs.resolve(sf.Type, fpath); serr != nil {
				// An unbound interface field may still be pinned by a default
				// instance; the builder decides with the default in hand.
				if serr.Code == CodeUnresolvedInterface {
					continue
				}
				return nil, serr
			}
		}
		return &TypeDescriptor{Kind: KindStruct, Type: t}, nil

	case reflect.Interface:
		return rs.resolveInterface(t, path)

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t,
			Message: "type cannot be instantiated from command-line tokens"}
	}
	return &TypeDescriptor{Kind: KindPrimitive, Type: t}, nil
}

// resolveInterface classifies an interface field by its registered variant
// bindings: all structures form a Choice (one active variant per invocation),
// all leaves form a single argument attempting variants in order, and mixed
// sets are rejected.
func (rs *resolver) resolveInterface(t reflect.Type, path string) (*TypeDescriptor, *SchemaError) {
	bindings := rs.reg.Variants(t)
	if len(bindings) == 0 {
		return nil, &SchemaError{Code: CodeUnresolvedInterface, Path: path, Type: t,
			Message: "interface has no registered variants",
			Hint:    "bind alternatives with constructors.RegisterVariants, or supply a default instance with a concrete value"}
	}
	variants := make([]VariantDesc, 0, len(bindings))
	structs, leaves := 0, 0
	for _, b := range bindings {
		vd, serr := rs.resolve(b.Type, joinPath(path, b.Tag))
		if serr != nil {
			return nil, serr
		}
		if vd.Kind == KindStruct {
			structs++
		} else {
			leaves++
		}
		variants = append(variants, VariantDesc{Tag: b.Tag, Desc: vd})
	}
	switch {
	case structs > 0 && leaves > 0:
		return nil, &SchemaError{Code: CodeUnsupportedUnion, Path: path, Type: t,
			Message: "union mixes nested structures with leaf shapes"}
	case structs > 0:
		return &TypeDescriptor{Kind: KindChoice, Type: t, Variants: variants}, nil
	default:
		return &TypeDescriptor{Kind: KindUnionLeaf, Type: t, Variants: variants}, nil
	}
}
