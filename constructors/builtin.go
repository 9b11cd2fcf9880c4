package constructors

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	timeType            = reflect.TypeOf(time.Time{})
	durationType        = reflect.TypeOf(time.Duration(0))
)

// builtinSpec derives a spec for the well-known shapes: scalars, enums,
// optionals, sequences, fixed tuples, mappings, timestamps, durations,
// encoding.TextUnmarshaler implementations, and leaf unions over registered
// interface variants.
func builtinSpec(r *Registry, ti TypeInfo) (Spec, error) {
	t := ti.Type

	switch {
	case t == nil:
		return Spec{}, &UnsupportedTypeError{Reason: "nil type"}
	case t.Kind() == reflect.Interface:
		return unionSpec(r, ti)
	case t.Kind() == reflect.Pointer:
		inner, err := r.specFor(TypeInfo{Type: t.Elem(), Choices: ti.Choices, Metavar: ti.Metavar, Tuple: ti.Tuple}, true)
		if err != nil {
			return Spec{}, err
		}
		return optionalSpec(t, inner), nil
	case len(ti.Choices) > 0:
		return enumSpec(t, ti.Choices)
	case t == durationType:
		return durationSpec(ti), nil
	case t == timeType:
		return timestampSpec(ti), nil
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return textSpec(t, ti), nil
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return scalarSpec(t, ti), nil
	case reflect.Slice:
		elem, err := r.specFor(TypeInfo{Type: t.Elem()}, false)
		if err != nil {
			return Spec{}, err
		}
		return sequenceSpec(t, elem), nil
	case reflect.Array:
		elem, err := r.specFor(TypeInfo{Type: t.Elem()}, false)
		if err != nil {
			return Spec{}, err
		}
		return arraySpec(t, elem), nil
	case reflect.Map:
		key, err := r.specFor(TypeInfo{Type: t.Key()}, false)
		if err != nil {
			return Spec{}, err
		}
		val, err := r.specFor(TypeInfo{Type: t.Elem()}, false)
		if err != nil {
			return Spec{}, err
		}
		return mapSpec(t, key, val), nil
	case reflect.Struct:
		if ti.Tuple {
			return tupleSpec(r, t)
		}
		return Spec{}, &UnsupportedTypeError{Type: t, Reason: "nested structures are not leaf arguments"}
	}
	return Spec{}, &UnsupportedTypeError{Type: t}
}

// convertTo coerces v to type t, mirroring assignability rules used when
// filling struct fields.
func convertTo(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", rv.Type(), t)
}

func isType(t reflect.Type) func(v any) bool {
	return func(v any) bool {
		return v != nil && reflect.TypeOf(v) == t
	}
}

func one(tokens []string) (string, error) {
	if len(tokens) != 1 {
		return "", fmt.Errorf("expected 1 token, got %d", len(tokens))
	}
	return tokens[0], nil
}

func scalarSpec(t reflect.Type, ti TypeInfo) Spec {
	kind := t.Kind()
	metavar := strings.ToUpper(kind.String())
	var choices []string
	if kind == reflect.String {
		metavar = "STR"
	}
	if kind == reflect.Bool {
		metavar = "{True,False}"
		choices = []string{"True", "False"}
	}
	parse := func(tok string) (any, error) {
		switch kind {
		case reflect.Bool:
			return strconv.ParseBool(tok)
		case reflect.String:
			return tok, nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.ParseInt(tok, 0, t.Bits())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.ParseUint(tok, 0, t.Bits())
		case reflect.Float32, reflect.Float64:
			return strconv.ParseFloat(tok, t.Bits())
		case reflect.Complex64, reflect.Complex128:
			return strconv.ParseComplex(tok, t.Bits())
		}
		return nil, fmt.Errorf("unhandled kind %s", kind)
	}
	return Spec{
		Nargs:   1,
		Metavar: chooseMetavar(ti, metavar),
		Choices: choices,
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			raw, err := parse(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q", metavarWord(kind), tok)
			}
			rv, err := convertTo(raw, t)
			if err != nil {
				return nil, err
			}
			return rv.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			if kind == reflect.Bool {
				if rv.Bool() {
					return []string{"True"}, nil
				}
				return []string{"False"}, nil
			}
			return []string{fmt.Sprintf("%v", rv.Interface())}, nil
		},
		Accepts: isType(t),
	}
}

func metavarWord(k reflect.Kind) string {
	switch k {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Complex64, reflect.Complex128:
		return "complex"
	default:
		return "integer"
	}
}

func enumSpec(t reflect.Type, choices []string) (Spec, error) {
	kind := t.Kind()
	switch kind {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return Spec{}, &UnsupportedTypeError{Type: t, Reason: "choices require a string or integer kind"}
	}
	metavar := "{" + strings.Join(choices, ",") + "}"
	member := func(tok string) bool {
		for _, c := range choices {
			if c == tok {
				return true
			}
		}
		return false
	}
	return Spec{
		Nargs:   1,
		Metavar: metavar,
		Choices: append([]string(nil), choices...),
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			if !member(tok) {
				return nil, fmt.Errorf("invalid choice %q (choose from %s)", tok, strings.Join(choices, ", "))
			}
			if kind == reflect.String {
				rv, err := convertTo(tok, t)
				if err != nil {
					return nil, err
				}
				return rv.Interface(), nil
			}
			n, err := strconv.ParseInt(tok, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer value %q", tok)
			}
			rv, err := convertTo(n, t)
			if err != nil {
				return nil, err
			}
			return rv.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("%v", rv.Interface())}, nil
		},
		Accepts: func(v any) bool {
			if v == nil || reflect.TypeOf(v) != t {
				return false
			}
			return member(fmt.Sprintf("%v", v))
		},
	}, nil
}

func durationSpec(ti TypeInfo) Spec {
	return Spec{
		Nargs:   1,
		Metavar: chooseMetavar(ti, "DURATION"),
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			d, err := time.ParseDuration(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q", tok)
			}
			return d, nil
		},
		ToTokens: func(v any) ([]string, error) {
			d, ok := v.(time.Duration)
			if !ok {
				return nil, fmt.Errorf("cannot use %T as time.Duration", v)
			}
			return []string{d.String()}, nil
		},
		Accepts: isType(durationType),
	}
}

// timestampSpec parses RFC 3339 timestamps, the canonical wire format for
// time values in this module.
func timestampSpec(ti TypeInfo) Spec {
	return Spec{
		Nargs:   1,
		Metavar: chooseMetavar(ti, "RFC3339"),
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			tm, err := time.Parse(time.RFC3339Nano, tok)
			if err != nil {
				return nil, fmt.Errorf("invalid RFC 3339 timestamp %q", tok)
			}
			return tm, nil
		},
		ToTokens: func(v any) ([]string, error) {
			tm, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("cannot use %T as time.Time", v)
			}
			return []string{tm.Format(time.RFC3339Nano)}, nil
		},
		Accepts: isType(timeType),
	}
}

func textSpec(t reflect.Type, ti TypeInfo) Spec {
	metavar := strings.ToUpper(t.Name())
	if metavar == "" {
		metavar = "VALUE"
	}
	return Spec{
		Nargs:   1,
		Metavar: chooseMetavar(ti, metavar),
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			pv := reflect.New(t)
			if err := pv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(tok)); err != nil {
				return nil, err
			}
			return pv.Elem().Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			if m, ok := v.(encoding.TextMarshaler); ok {
				b, err := m.MarshalText()
				if err != nil {
					return nil, err
				}
				return []string{string(b)}, nil
			}
			rv := reflect.ValueOf(v)
			if rv.IsValid() && reflect.PointerTo(rv.Type()).Implements(textMarshalerType) && rv.CanAddr() {
				b, err := rv.Addr().Interface().(encoding.TextMarshaler).MarshalText()
				if err != nil {
					return nil, err
				}
				return []string{string(b)}, nil
			}
			return []string{fmt.Sprintf("%v", v)}, nil
		},
		Accepts: isType(t),
	}
}

// optionalSpec wraps an inner spec so that the single token "None" yields a
// typed nil pointer. "None" sorts first in the choice list, matching the
// zero state of an absent optional.
func optionalSpec(t reflect.Type, inner Spec) Spec {
	var choices []string
	if inner.Choices != nil {
		choices = append([]string{"None"}, inner.Choices...)
	}
	metavar := "{None}|" + inner.Metavar
	if inner.Choices != nil {
		metavar = "{" + strings.Join(choices, ",") + "}"
	}
	return Spec{
		Nargs:   inner.Nargs,
		Metavar: metavar,
		Choices: choices,
		FromTokens: func(tokens []string) (any, error) {
			if len(tokens) == 1 && tokens[0] == "None" {
				return reflect.Zero(t).Interface(), nil
			}
			v, err := inner.FromTokens(tokens)
			if err != nil {
				return nil, err
			}
			ev, err := convertTo(v, t.Elem())
			if err != nil {
				return nil, err
			}
			pv := reflect.New(t.Elem())
			pv.Elem().Set(ev)
			return pv.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv := reflect.ValueOf(v)
			if v == nil || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
				return []string{"None"}, nil
			}
			if rv.Kind() != reflect.Pointer {
				return nil, fmt.Errorf("cannot use %T as %s", v, t)
			}
			return inner.ToTokens(rv.Elem().Interface())
		},
		Accepts: func(v any) bool {
			if v == nil {
				return true
			}
			rv := reflect.ValueOf(v)
			return rv.Type() == t
		},
	}
}

func sequenceSpec(t reflect.Type, elem Spec) Spec {
	return Spec{
		Nargs:   Variadic,
		Metavar: fmt.Sprintf("%s [%s ...]", elem.Metavar, elem.Metavar),
		Choices: elem.Choices,
		FromTokens: func(tokens []string) (any, error) {
			out := reflect.MakeSlice(t, 0, len(tokens))
			for _, tok := range tokens {
				v, err := elem.FromTokens([]string{tok})
				if err != nil {
					return nil, err
				}
				ev, err := convertTo(v, t.Elem())
				if err != nil {
					return nil, err
				}
				out = reflect.Append(out, ev)
			}
			return out.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			var out []string
			for i := 0; i < rv.Len(); i++ {
				toks, err := elem.ToTokens(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out = append(out, toks...)
			}
			if out == nil {
				out = []string{}
			}
			return out, nil
		},
		Accepts: isType(t),
	}
}

func arraySpec(t reflect.Type, elem Spec) Spec {
	n := t.Len()
	parts := make([]string, n)
	for i := range parts {
		parts[i] = elem.Metavar
	}
	return Spec{
		Nargs:   n,
		Metavar: strings.Join(parts, " "),
		Choices: elem.Choices,
		FromTokens: func(tokens []string) (any, error) {
			if len(tokens) != n {
				return nil, fmt.Errorf("expected %d tokens, got %d", n, len(tokens))
			}
			out := reflect.New(t).Elem()
			for i, tok := range tokens {
				v, err := elem.FromTokens([]string{tok})
				if err != nil {
					return nil, err
				}
				ev, err := convertTo(v, t.Elem())
				if err != nil {
					return nil, err
				}
				out.Index(i).Set(ev)
			}
			return out.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			var out []string
			for i := 0; i < n; i++ {
				toks, err := elem.ToTokens(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out = append(out, toks...)
			}
			return out, nil
		},
		Accepts: isType(t),
	}
}

// mapSpec consumes alternating key/value token pairs.
func mapSpec(t reflect.Type, key, val Spec) Spec {
	return Spec{
		Nargs:   Variadic,
		Metavar: fmt.Sprintf("%s %s [%s %s ...]", key.Metavar, val.Metavar, key.Metavar, val.Metavar),
		FromTokens: func(tokens []string) (any, error) {
			if len(tokens)%2 != 0 {
				return nil, fmt.Errorf("incomplete set of key value pairs")
			}
			out := reflect.MakeMapWithSize(t, len(tokens)/2)
			for i := 0; i < len(tokens); i += 2 {
				k, err := key.FromTokens([]string{tokens[i]})
				if err != nil {
					return nil, err
				}
				v, err := val.FromTokens([]string{tokens[i+1]})
				if err != nil {
					return nil, err
				}
				kv, err := convertTo(k, t.Key())
				if err != nil {
					return nil, err
				}
				vv, err := convertTo(v, t.Elem())
				if err != nil {
					return nil, err
				}
				out.SetMapIndex(kv, vv)
			}
			return out.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			keys := rv.MapKeys()
			// Deterministic order for display round trips.
			ks := make([]string, 0, len(keys))
			byRepr := make(map[string]reflect.Value, len(keys))
			for _, k := range keys {
				kt, err := key.ToTokens(k.Interface())
				if err != nil {
					return nil, err
				}
				ks = append(ks, kt[0])
				byRepr[kt[0]] = k
			}
			sort.Strings(ks)
			var out []string
			for _, kr := range ks {
				vt, err := val.ToTokens(rv.MapIndex(byRepr[kr]).Interface())
				if err != nil {
					return nil, err
				}
				out = append(out, kr)
				out = append(out, vt...)
			}
			if out == nil {
				out = []string{}
			}
			return out, nil
		},
		Accepts: isType(t),
	}
}

// tupleSpec consumes one token run across a struct's exported fields, with a
// per-position sub-constructor for each field.
func tupleSpec(r *Registry, t reflect.Type) (Spec, error) {
	type position struct {
		index int
		spec  Spec
	}
	var positions []position
	total := 0
	var metas []string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		sub, err := r.specFor(TypeInfo{Type: sf.Type}, false)
		if err != nil {
			return Spec{}, err
		}
		positions = append(positions, position{index: i, spec: sub})
		total += sub.Nargs
		metas = append(metas, sub.Metavar)
	}
	if len(positions) == 0 {
		return Spec{}, &UnsupportedTypeError{Type: t, Reason: "tuple struct has no exported fields"}
	}
	return Spec{
		Nargs:   total,
		Metavar: strings.Join(metas, " "),
		FromTokens: func(tokens []string) (any, error) {
			if len(tokens) != total {
				return nil, fmt.Errorf("expected %d tokens, got %d", total, len(tokens))
			}
			out := reflect.New(t).Elem()
			off := 0
			for _, p := range positions {
				v, err := p.spec.FromTokens(tokens[off : off+p.spec.Nargs])
				if err != nil {
					return nil, err
				}
				fv, err := convertTo(v, t.Field(p.index).Type)
				if err != nil {
					return nil, err
				}
				out.Field(p.index).Set(fv)
				off += p.spec.Nargs
			}
			return out.Interface(), nil
		},
		ToTokens: func(v any) ([]string, error) {
			rv, err := convertTo(v, t)
			if err != nil {
				return nil, err
			}
			var out []string
			for _, p := range positions {
				toks, err := p.spec.ToTokens(rv.Field(p.index).Interface())
				if err != nil {
					return nil, err
				}
				out = append(out, toks...)
			}
			return out, nil
		},
		Accepts: isType(t),
	}, nil
}

// unionSpec handles interface-typed leaves whose registered variants are all
// leaf-capable shapes. Conversion attempts each variant in binding order and
// the first success wins; this is an explicit ordered attempt list, not
// error-driven unwinding.
func unionSpec(r *Registry, ti TypeInfo) (Spec, error) {
	t := ti.Type
	bindings := r.Variants(t)
	if len(bindings) == 0 {
		return Spec{}, &UnsupportedTypeError{Type: t, Reason: "interface with no registered variants"}
	}
	specs := make([]Spec, len(bindings))
	nargs := 0
	for i, b := range bindings {
		if b.Type.Kind() == reflect.Struct && !reflect.PointerTo(b.Type).Implements(textUnmarshalerType) {
			return Spec{}, &UnsupportedTypeError{Type: t, Reason: "union variant " + b.Type.String() + " is a nested structure, not a leaf"}
		}
		s, err := r.specFor(TypeInfo{Type: b.Type}, true)
		if err != nil {
			return Spec{}, err
		}
		specs[i] = s
		if i == 0 {
			nargs = s.Nargs
		} else if s.Nargs != nargs {
			// Be as general as possible when variants disagree on arity.
			nargs = Variadic
		}
	}
	metas := make([]string, len(specs))
	for i, s := range specs {
		metas[i] = s.Metavar
	}
	return Spec{
		Nargs:   nargs,
		Metavar: strings.Join(metas, "|"),
		FromTokens: func(tokens []string) (any, error) {
			var errs []string
			for i, s := range specs {
				if s.Nargs != Variadic && s.Nargs != len(tokens) {
					errs = append(errs, fmt.Sprintf("%s: expects %d tokens", bindings[i].Type, s.Nargs))
					continue
				}
				if s.Choices != nil && !allIn(tokens, s.Choices) {
					errs = append(errs, fmt.Sprintf("%s: %v does not match choices %v", bindings[i].Type, tokens, s.Choices))
					continue
				}
				v, err := s.FromTokens(tokens)
				if err == nil {
					return v, nil
				}
				errs = append(errs, fmt.Sprintf("%s: %v", bindings[i].Type, err))
			}
			return nil, fmt.Errorf("no variant of %s could be instantiated from %v:\n- %s", t, tokens, strings.Join(errs, "\n- "))
		},
		ToTokens: func(v any) ([]string, error) {
			for _, s := range specs {
				if s.Accepts != nil && s.Accepts(v) {
					return s.ToTokens(v)
				}
			}
			return nil, fmt.Errorf("no variant of %s accepts %T", t, v)
		},
		Accepts: func(v any) bool {
			for _, s := range specs {
				if s.Accepts != nil && s.Accepts(v) {
					return true
				}
			}
			return false
		},
	}, nil
}

func allIn(tokens, choices []string) bool {
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
