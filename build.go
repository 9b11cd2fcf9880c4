package tyro

import (
	"fmt"
	"reflect"

	"github.com/mirceamironenco/tyro/constructors"
)

// Variadic marks an argument consuming a variable number of tokens.
const Variadic = constructors.Variadic

// Gate conditions an argument on a union selection: the argument is active
// only while Choice has selected Tag.
type Gate struct {
	Choice string `json:"choice"`
	Tag    string `json:"tag"`
}

// LeafInfo is the per-argument record exposed to the front-end parser: one
// flag or positional consuming raw tokens.
type LeafInfo struct {
	Index         int      `json:"index"`
	Path          string   `json:"path"`
	Flag          string   `json:"flag"`
	Metavar       string   `json:"metavar"`
	Help          string   `json:"help,omitempty"`
	Nargs         int      `json:"nargs"`
	Required      bool     `json:"required"`
	Positional    bool     `json:"positional"`
	BoolFlag      bool     `json:"bool_flag"` // Presence flag with a --no- counterpart.
	DefaultTokens []string `json:"default_tokens,omitempty"`
	Gates         []Gate   `json:"gates,omitempty"`
}

// ChoiceInfo is the per-union record exposed to the front-end parser: a
// discriminant selecting exactly one variant.
type ChoiceInfo struct {
	Index      int      `json:"index"`
	Path       string   `json:"path"`
	Flag       string   `json:"flag"`
	Help       string   `json:"help,omitempty"`
	Tags       []string `json:"tags"`
	DefaultTag string   `json:"default_tag,omitempty"`
	Required   bool     `json:"required"`
	Gates      []Gate   `json:"gates,omitempty"`
}

// Surface is the flattened argument surface of a derived schema: everything
// the front-end parser, a help renderer, or a completion generator needs.
type Surface struct {
	Prog        string       `json:"prog"`
	Description string       `json:"description,omitempty"`
	Args        []LeafInfo   `json:"args"`
	Choices     []ChoiceInfo `json:"choices,omitempty"`
}

// ParserNode is one node of the derived schema tree.
type ParserNode interface {
	fieldSpec() *FieldSpec
}

// Leaf directly consumes raw tokens through a constructor spec.
type Leaf struct {
	Field     FieldSpec
	Spec      constructors.Spec
	BoolFlag  bool
	fieldType reflect.Type
}

func (l *Leaf) fieldSpec() *FieldSpec { return &l.Field }

// Group is a nested structure assembled from its children.
type Group struct {
	Field      FieldSpec
	Type       reflect.Type // Struct type being assembled.
	Children   []ParserNode
	childIndex []int // Struct field index per child.
	Pointer    bool  // Field was *Struct.
	NilDefault bool  // Pointer group whose default is absent.
}

func (g *Group) fieldSpec() *FieldSpec { return &g.Field }

// Choice is a union: exactly one variant subtree is active per invocation.
type Choice struct {
	Field      FieldSpec
	Type       reflect.Type // Interface type.
	Variants   []ChoiceVariant
	DefaultTag string
}

// ChoiceVariant pairs a discriminant tag with its subtree.
type ChoiceVariant struct {
	Tag  string
	Node ParserNode
}

func (c *Choice) fieldSpec() *FieldSpec { return &c.Field }

// schema is the result of one derivation: the node tree plus the flattened
// surface handed to the front-end parser. Built once per invocation and
// discarded after the call returns.
type schema struct {
	root    ParserNode
	surface *Surface
}

type builder struct {
	rs   *resolver
	reg  *constructors.Registry
	args []LeafInfo
	chs  []ChoiceInfo
	seen map[string]string // flat path -> provenance, for collision reporting
	idx  int
}

// buildSchema derives the schema tree for target type t. Non-struct targets
// are wrapped the way a bare callable would be: a single value argument, or
// a bare union becoming a top-level command choice.
func buildSchema(t reflect.Type, dflt reflect.Value, reg *constructors.Registry, prog, description string) (*schema, *SchemaError) {
	b := &builder{rs: newResolver(reg), reg: reg, seen: map[string]string{}}
	desc, serr := b.rs.resolve(t, "")
	if serr != nil {
		return nil, serr
	}

	var root ParserNode
	switch desc.Kind {
	case KindStruct:
		root, serr = b.buildGroup(t, dflt, "", "", nil, FieldSpec{Name: "", Path: "", Flag: ""}, false, false)
	case KindChoice:
		root, serr = b.buildChoice(t, desc, dflt, "command", "", "", nil, fieldMeta{})
	case KindOptional:
		if desc.Elem.Kind == KindStruct {
			root, serr = b.buildGroup(t.Elem(), derefDefault(dflt), "", "", nil, FieldSpec{}, true, !dflt.IsValid() || dflt.IsNil())
			break
		}
		fallthrough
	default:
		meta := fieldMeta{Positional: true}
		root, serr = b.buildLeaf(t, dflt, "value", "value", "value", nil, meta)
	}
	if serr != nil {
		return nil, serr
	}
	return &schema{
		root: root,
		surface: &Surface{
			Prog:        prog,
			Description: description,
			Args:        b.args,
			Choices:     b.chs,
		},
	}, nil
}

func derefDefault(v reflect.Value) reflect.Value {
	if v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem()
	}
	return reflect.Value{}
}

// buildGroup walks a struct's fields in declaration order, recursing into
// nested structures and unions and producing leaves for everything else.
func (b *builder) buildGroup(t reflect.Type, dflt reflect.Value, prefix, display string, gates []Gate, fs FieldSpec, pointer, nilDefault bool) (*Group, *SchemaError) {
	g := &Group{Field: fs, Type: t, Pointer: pointer, NilDefault: nilDefault}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		meta := parseFieldMeta(sf)
		if meta.Skip {
			continue
		}
		name := resolveFieldName(sf, meta)
		path := joinPath(prefix, name)
		flag := joinPath(display, name)

		var fdef reflect.Value
		if dflt.IsValid() {
			fdef = dflt.Field(i)
		}

		child, serr := b.buildField(sf.Type, fdef, name, path, flag, gates, meta)
		if serr != nil {
			return nil, serr
		}
		g.Children = append(g.Children, child)
		g.childIndex = append(g.childIndex, i)
	}
	return g, nil
}

func (b *builder) buildField(t reflect.Type, fdef reflect.Value, name, path, flag string, gates []Gate, meta fieldMeta) (ParserNode, *SchemaError) {
	if meta.Tuple || meta.With != "" || len(meta.Choices) > 0 {
		return b.buildLeaf(t, fdef, name, path, flag, gates, meta)
	}
	if t.Kind() == reflect.Interface && len(b.reg.Variants(t)) == 0 && fdef.IsValid() && !fdef.IsNil() {
		return b.buildPinned(t, fdef, name, path, flag, gates, meta)
	}
	desc, serr := b.rs.resolve(t, path)
	if serr != nil {
		return nil, serr
	}
	switch desc.Kind {
	case KindStruct:
		fs := FieldSpec{Name: name, Path: path, Flag: flag, Help: meta.Help}
		return b.buildGroup(t, fdef, path, flag, gates, fs, false, false)

	case KindChoice:
		return b.buildChoice(t, desc, fdef, path, path, flag, gates, meta)

	case KindOptional:
		if desc.Elem.Kind == KindStruct {
			fs := FieldSpec{Name: name, Path: path, Flag: flag, Help: meta.Help, HasDefault: true}
			nilDefault := !fdef.IsValid() || fdef.IsNil()
			return b.buildGroup(t.Elem(), derefDefault(fdef), path, flag, gates, fs, true, nilDefault)
		}
		if desc.Elem.Kind == KindChoice {
			return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t,
				Message: "optional unions over nested structures are not supported; register a variant with an empty structure instead"}
		}
		return b.buildLeaf(t, fdef, name, path, flag, gates, meta)

	default:
		return b.buildLeaf(t, fdef, name, path, flag, gates, meta)
	}
}

// buildLeaf resolves the constructor spec for a leaf argument, computes its
// default, and registers it on the flat surface.
func (b *builder) buildLeaf(t reflect.Type, fdef reflect.Value, name, path, flag string, gates []Gate, meta fieldMeta) (*Leaf, *SchemaError) {
	var spec constructors.Spec
	if meta.With != "" {
		s, ok := b.reg.NamedSpec(meta.With)
		if !ok {
			return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t,
				Message: fmt.Sprintf("no constructor named %q is registered", meta.With)}
		}
		spec = s
	} else {
		s, err := b.reg.SpecFor(constructors.TypeInfo{
			Type:    t,
			Choices: meta.Choices,
			Metavar: meta.Metavar,
			Tuple:   meta.Tuple,
		})
		if err != nil {
			return nil, &SchemaError{Code: CodeUnsupportedType, Path: path, Type: t, Message: err.Error()}
		}
		spec = s
	}

	// Default-instance values override tag defaults at every matching path.
	fs := FieldSpec{Name: name, Path: path, Flag: flag, Help: meta.Help, Positional: meta.Positional, Fixed: meta.Fixed}
	switch {
	case fdef.IsValid():
		fs.HasDefault, fs.Default = true, fdef.Interface()
	case meta.HasDefaultTag:
		v, err := spec.FromTokens(meta.DefaultTokens)
		if err != nil {
			return nil, &SchemaError{Code: CodeInvalidDefault, Path: path, Type: t,
				Message: fmt.Sprintf("default tag %v does not parse: %v", meta.DefaultTokens, err)}
		}
		fs.HasDefault, fs.Default = true, v
	case t.Kind() == reflect.Pointer:
		// Absent is the zero state of an optional.
		fs.HasDefault, fs.Default = true, reflect.Zero(t).Interface()
	default:
		fs.Required = true
	}

	if meta.Fixed && !fs.HasDefault {
		return nil, &SchemaError{Code: CodeInvalidDefault, Path: path, Type: t,
			Message: "fixed fields need a default value"}
	}

	boolFlag := t.Kind() == reflect.Bool && fs.HasDefault && meta.With == "" && len(meta.Choices) == 0

	var defTokens []string
	if fs.HasDefault && spec.ToTokens != nil {
		if toks, err := spec.ToTokens(fs.Default); err == nil {
			defTokens = toks
		}
	}

	leaf := &Leaf{Field: fs, Spec: spec, BoolFlag: boolFlag, fieldType: t}
	if meta.Fixed {
		return leaf, nil // Not settable from the CLI; assembled from the default.
	}
	if serr := b.claim(path, flag); serr != nil {
		return nil, serr
	}
	b.args = append(b.args, LeafInfo{
		Index:         b.nextIndex(),
		Path:          path,
		Flag:          flag,
		Metavar:       spec.Metavar,
		Help:          meta.Help,
		Nargs:         spec.Nargs,
		Required:      fs.Required,
		Positional:    meta.Positional,
		BoolFlag:      boolFlag,
		DefaultTokens: defTokens,
		Gates:         gates,
	})
	return leaf, nil
}

// buildPinned handles an interface field with no registered variants whose
// default instance supplies a concrete value: the field is fixed to the
// default's dynamic type and flattened like a plain field of that type.
func (b *builder) buildPinned(t reflect.Type, fdef reflect.Value, name, path, flag string, gates []Gate, meta fieldMeta) (ParserNode, *SchemaError) {
	concrete := fdef.Elem()
	ct := concrete.Type()
	pointer := false
	if ct.Kind() == reflect.Pointer {
		if concrete.IsNil() {
			return nil, &SchemaError{Code: CodeUnresolvedInterface, Path: path, Type: t,
				Message: "default value is a nil pointer; the concrete type cannot be instantiated"}
		}
		concrete = concrete.Elem()
		ct = ct.Elem()
		pointer = true
	}
	desc, serr := b.rs.resolve(ct, path)
	if serr != nil {
		return nil, serr
	}
	if desc.Kind == KindStruct {
		fs := FieldSpec{Name: name, Path: path, Flag: flag, Help: meta.Help, HasDefault: true}
		return b.buildGroup(ct, concrete, path, flag, gates, fs, pointer, false)
	}
	if pointer {
		ct = reflect.PointerTo(ct)
		concrete = fdef.Elem()
	}
	return b.buildLeaf(ct, concrete, name, path, flag, gates, meta)
}

// buildChoice derives a union node. Each variant subtree is built under a
// tag-qualified internal prefix so paths stay unique, while display flags
// keep the plain field prefix; the discriminant itself is consumed as a
// bare subcommand-style token.
func (b *builder) buildChoice(t reflect.Type, desc *TypeDescriptor, fdef reflect.Value, choicePath, fieldPath, flag string, gates []Gate, meta fieldMeta) (*Choice, *SchemaError) {
	c := &Choice{
		Field: FieldSpec{Name: flag, Path: choicePath, Flag: flag, Help: meta.Help},
		Type:  t,
	}
	tags := make([]string, 0, len(desc.Variants))
	for _, v := range desc.Variants {
		tags = append(tags, v.Tag)
	}

	// As with leaves, a default-instance variant overrides the tag default.
	var defVariant reflect.Value
	switch {
	case fdef.IsValid() && !fdef.IsNil():
		dyn := fdef.Elem().Type()
		concrete := fdef.Elem()
		if dyn.Kind() == reflect.Pointer {
			dyn = dyn.Elem()
			concrete = concrete.Elem()
		}
		for _, v := range desc.Variants {
			if v.Desc.Type == dyn {
				c.DefaultTag = v.Tag
				defVariant = concrete
				break
			}
		}
		if c.DefaultTag == "" {
			return nil, &SchemaError{Code: CodeUnresolvedInterface, Path: choicePath, Type: t,
				Message: fmt.Sprintf("default value type %s is not a registered variant", dyn)}
		}
	case meta.HasDefaultTag:
		if len(meta.DefaultTokens) != 1 || !contains(tags, meta.DefaultTokens[0]) {
			return nil, &SchemaError{Code: CodeInvalidDefault, Path: choicePath, Type: t,
				Message: fmt.Sprintf("default %v is not a variant tag (have %v)", meta.DefaultTokens, tags)}
		}
		c.DefaultTag = meta.DefaultTokens[0]
	}
	c.Field.HasDefault = c.DefaultTag != ""
	c.Field.Required = !c.Field.HasDefault

	if serr := b.claim(choicePath, flag); serr != nil {
		return nil, serr
	}
	b.chs = append(b.chs, ChoiceInfo{
		Index:      b.nextIndex(),
		Path:       choicePath,
		Flag:       flag,
		Help:       meta.Help,
		Tags:       tags,
		DefaultTag: c.DefaultTag,
		Required:   c.Field.Required,
		Gates:      gates,
	})

	for _, v := range desc.Variants {
		var vdef reflect.Value
		if v.Tag == c.DefaultTag && defVariant.IsValid() {
			vdef = defVariant
		}
		vgates := append(append([]Gate(nil), gates...), Gate{Choice: choicePath, Tag: v.Tag})
		internal := joinPath(fieldPath, v.Tag)
		fs := FieldSpec{Name: v.Tag, Path: internal, Flag: flag}
		node, serr := b.buildGroup(v.Desc.Type, vdef, internal, flag, vgates, fs, false, false)
		if serr != nil {
			return nil, serr
		}
		c.Variants = append(c.Variants, ChoiceVariant{Tag: v.Tag, Node: node})
	}
	return c, nil
}

func (b *builder) nextIndex() int {
	b.idx++
	return b.idx - 1
}

// claim records a flat path and rejects collisions: two fields flattening to
// the same name is an authoring error, never a silent drop.
func (b *builder) claim(path, flag string) *SchemaError {
	if prev, ok := b.seen[path]; ok {
		return &SchemaError{Code: CodeAmbiguousName, Path: path,
			Message: fmt.Sprintf("argument name collides with %s", prev)}
	}
	b.seen[path] = flag
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
