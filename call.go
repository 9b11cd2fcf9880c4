package tyro

import (
	"fmt"
	"reflect"

	"github.com/mirceamironenco/tyro/i18n"
)

// Validator is the optional post-assembly hook: a structure implementing it
// has Validate run after its fields are filled, and a non-nil error surfaces
// as an instantiation issue at the group's path.
type Validator interface {
	Validate() error
}

// assembleRoot reconstructs the typed value from the front-end parser's flat
// result. After a successful assembly every provided path must have been
// consumed by exactly one node; a leftover path means the builder and the
// front-end parser disagree about the surface, which is a programming error
// and panics rather than being silently ignored.
func assembleRoot(s *schema, res *ParseResult) (reflect.Value, Issues) {
	consumed := map[string]bool{}
	selected := map[string]bool{}
	v, _, iss := assembleNode(s.root, res, consumed, selected)
	if len(iss) > 0 {
		return reflect.Value{}, iss
	}
	for path := range res.Values {
		if !consumed[path] {
			panic(fmt.Sprintf("tyro: internal: argument %q was parsed but never consumed", path))
		}
	}
	for path := range res.Selected {
		if !selected[path] {
			panic(fmt.Sprintf("tyro: internal: selection %q was parsed but never consumed", path))
		}
	}
	return v, nil
}

// assembleNode walks the tree bottom-up. The second result reports whether
// any input token contributed to the value, which decides whether an
// optional nested structure materializes or stays nil.
func assembleNode(n ParserNode, res *ParseResult, consumed, selected map[string]bool) (reflect.Value, bool, Issues) {
	switch node := n.(type) {
	case *Leaf:
		return assembleLeaf(node, res, consumed)
	case *Group:
		return assembleGroup(node, res, consumed, selected)
	case *Choice:
		return assembleChoice(node, res, consumed, selected)
	}
	panic(fmt.Sprintf("tyro: internal: unknown node %T", n))
}

func assembleLeaf(l *Leaf, res *ParseResult, consumed map[string]bool) (reflect.Value, bool, Issues) {
	tokens, ok := res.Values[l.Field.Path]
	if l.Field.Fixed {
		ok = false // Never settable from input.
	} else if ok {
		consumed[l.Field.Path] = true
	}
	if !ok {
		if l.Field.HasDefault {
			return defaultValue(l.Field.Default, l.fieldType), false, nil
		}
		return reflect.Value{}, false, Issues{{
			Path:    l.Field.Path,
			Code:    CodeRequired,
			Message: i18n.T(CodeRequired, nil),
			Hint:    fmt.Sprintf("pass --%s %s", l.Field.Flag, l.Spec.Metavar),
		}}
	}

	v, err := l.Spec.FromTokens(tokens)
	if err != nil {
		code := CodeParseError
		if l.Spec.Choices != nil && !tokensIn(tokens, l.Spec.Choices) {
			code = CodeInvalidEnum
		}
		return reflect.Value{}, true, Issues{{
			Path:    l.Field.Path,
			Code:    code,
			Message: i18n.T(code, nil),
			Hint:    err.Error(),
			Tokens:  tokens,
			Cause:   err,
		}}
	}
	rv, cerr := coerce(v, l.fieldType)
	if cerr != nil {
		return reflect.Value{}, true, Issues{{
			Path:    l.Field.Path,
			Code:    CodeParseError,
			Message: i18n.T(CodeParseError, nil),
			Hint:    cerr.Error(),
			Tokens:  tokens,
			Cause:   cerr,
		}}
	}
	return rv, true, nil
}

func assembleGroup(g *Group, res *ParseResult, consumed, selected map[string]bool) (reflect.Value, bool, Issues) {
	// An omitted optional structure stays nil; its children are never
	// consulted, so their required leaves cannot fire.
	if g.Pointer && g.NilDefault && !subtreeTouched(g, res) {
		return reflect.Zero(reflect.PointerTo(g.Type)), false, nil
	}

	rv := reflect.New(g.Type).Elem()
	touched := false
	var iss Issues
	for i, child := range g.Children {
		cv, ct, cerr := assembleNode(child, res, consumed, selected)
		if len(cerr) > 0 {
			iss = AppendIssues(iss, cerr...)
			continue
		}
		touched = touched || ct
		fv := rv.Field(g.childIndex[i])
		set, serr := coerceValue(cv, fv.Type())
		if serr != nil {
			iss = AppendIssues(iss, Issue{
				Path: child.fieldSpec().Path, Code: CodeParseError,
				Message: i18n.T(CodeParseError, nil), Hint: serr.Error(), Cause: serr,
			})
			continue
		}
		fv.Set(set)
	}
	if len(iss) > 0 {
		return reflect.Value{}, touched, iss
	}

	// Assembly hook: validation inside the constructed structure.
	if v, ok := rv.Addr().Interface().(Validator); ok {
		if err := v.Validate(); err != nil {
			return reflect.Value{}, touched, Issues{{
				Path:    g.Field.Path,
				Code:    CodeInstantiation,
				Message: i18n.T(CodeInstantiation, nil),
				Hint:    err.Error(),
				Cause:   err,
			}}
		}
	}

	if g.Pointer {
		pv := reflect.New(g.Type)
		pv.Elem().Set(rv)
		return pv, touched, nil
	}
	return rv, touched, nil
}

func assembleChoice(c *Choice, res *ParseResult, consumed, selected map[string]bool) (reflect.Value, bool, Issues) {
	tag, ok := res.Selected[c.Field.Path]
	if ok {
		selected[c.Field.Path] = true
	} else {
		tag = c.DefaultTag
	}
	if tag == "" {
		tags := make([]string, 0, len(c.Variants))
		for _, v := range c.Variants {
			tags = append(tags, v.Tag)
		}
		return reflect.Value{}, false, Issues{{
			Path:    c.Field.Path,
			Code:    CodeDiscriminatorMissing,
			Message: i18n.T(CodeDiscriminatorMissing, nil),
			Hint:    fmt.Sprintf("choose one of: %v", tags),
		}}
	}
	for _, v := range c.Variants {
		if v.Tag != tag {
			continue // Unselected subtrees are never consulted.
		}
		cv, touched, iss := assembleNode(v.Node, res, consumed, selected)
		if len(iss) > 0 {
			return reflect.Value{}, touched, iss
		}
		iv := reflect.New(c.Type).Elem()
		if cv.Type().Implements(c.Type) {
			iv.Set(cv)
		} else {
			pv := reflect.New(cv.Type())
			pv.Elem().Set(cv)
			iv.Set(pv)
		}
		return iv, touched || ok, nil
	}
	panic(fmt.Sprintf("tyro: internal: selected tag %q has no variant subtree at %s", tag, c.Field.Path))
}

// subtreeTouched reports whether any leaf path or selection under n appears
// in the flat input.
func subtreeTouched(n ParserNode, res *ParseResult) bool {
	switch node := n.(type) {
	case *Leaf:
		_, ok := res.Values[node.Field.Path]
		return ok && !node.Field.Fixed
	case *Group:
		for _, child := range node.Children {
			if subtreeTouched(child, res) {
				return true
			}
		}
		return false
	case *Choice:
		if _, ok := res.Selected[node.Field.Path]; ok {
			return true
		}
		for _, v := range node.Variants {
			if subtreeTouched(v.Node, res) {
				return true
			}
		}
		return false
	}
	return false
}

func defaultValue(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv, err := coerce(v, t)
	if err != nil {
		// Defaults were validated at build time; a mismatch here is a bug.
		panic(fmt.Sprintf("tyro: internal: default %v is not a %s: %v", v, t, err))
	}
	return rv
}

func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}
	return coerceValue(reflect.ValueOf(v), t)
}

func coerceValue(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !rv.IsValid() {
		return reflect.Zero(t), nil
	}
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", rv.Type(), t)
}

func tokensIn(tokens, choices []string) bool {
	for _, tok := range tokens {
		ok := false
		for _, c := range choices {
			if tok == c {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
