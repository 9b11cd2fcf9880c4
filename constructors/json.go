package constructors

import (
	"fmt"

	gojson "github.com/goccy/go-json"
)

// JSONSpec parses a single raw token as a JSON object into map[string]any.
// It is deliberately not part of the built-in rules: a map[string]any field
// fails derivation unless this spec (or a rule producing it) is registered,
// either as a named spec for with= tags or via a registry rule.
func JSONSpec() Spec {
	return Spec{
		Nargs:   1,
		Metavar: "JSON",
		FromTokens: func(tokens []string) (any, error) {
			tok, err := one(tokens)
			if err != nil {
				return nil, err
			}
			var m map[string]any
			if err := gojson.Unmarshal([]byte(tok), &m); err != nil {
				return nil, fmt.Errorf("invalid JSON object: %w", err)
			}
			return m, nil
		},
		ToTokens: func(v any) ([]string, error) {
			b, err := gojson.Marshal(v)
			if err != nil {
				return nil, err
			}
			return []string{string(b)}, nil
		},
		Accepts: func(v any) bool {
			_, ok := v.(map[string]any)
			return ok
		},
	}
}
