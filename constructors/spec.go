// Package constructors maps type shapes to primitive parsing and formatting
// rules. A Spec describes how one leaf argument consumes raw tokens; a
// Registry resolves a Spec for a type, consulting user rules before the
// built-in shapes.
package constructors

import (
	"fmt"
	"reflect"
)

// Variadic marks a Spec that consumes a variable number of tokens.
const Variadic = -1

// Spec is the parsing/formatting strategy for a single leaf argument.
//
// For any value v accepted by the spec, FromTokens(ToTokens(v)) must be
// behaviorally equivalent to v; default values are displayed through
// ToTokens and must survive the round trip.
type Spec struct {
	// Nargs is the number of raw tokens the argument consumes, or Variadic.
	Nargs int
	// Metavar names the value in usage output.
	Metavar string
	// Choices restricts raw tokens to a closed set when non-nil.
	Choices []string
	// FromTokens converts raw tokens into a typed value.
	FromTokens func(tokens []string) (any, error)
	// ToTokens renders a typed value back into raw tokens.
	ToTokens func(v any) ([]string, error)
	// Accepts reports whether v is a value this spec could have produced.
	Accepts func(v any) bool
}

// TypeInfo describes one type position presented to the registry, together
// with the field-level overrides that influence spec selection.
type TypeInfo struct {
	Type    reflect.Type
	Choices []string // Literal restriction from a choices= tag.
	Metavar string   // Metavar override from a metavar= tag.
	Tuple   bool     // Struct consumed as one fixed-arity leaf.
}

// UnsupportedTypeError reports that no rule, built-in or user-registered,
// can produce a Spec for a type.
type UnsupportedTypeError struct {
	Type   reflect.Type
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("constructors: no rule matches %s", e.Type)
	}
	return fmt.Sprintf("constructors: no rule matches %s: %s", e.Type, e.Reason)
}

func chooseMetavar(ti TypeInfo, fallback string) string {
	if ti.Metavar != "" {
		return ti.Metavar
	}
	return fallback
}
