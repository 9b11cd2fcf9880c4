package tyro

import (
	"reflect"

	gojson "github.com/goccy/go-json"

	"github.com/mirceamironenco/tyro/constructors"
)

// Export derives the argument surface for T without parsing anything: the
// flat list of flags, positionals, and discriminants with their metavars,
// defaults, and gating. Intended for documentation and completion tooling.
func Export[T any](opts ...RunOpt) (*Surface, error) {
	var opt RunOpt
	if len(opts) > 0 {
		opt = opts[0]
	}
	t := reflect.TypeOf((*T)(nil)).Elem()

	reg := opt.Registry
	if reg == nil {
		reg = constructors.NewRegistry()
	}
	dflt, serr := defaultValueFor(t, opt.Default)
	if serr != nil {
		return nil, serr
	}
	s, serr := buildSchema(t, dflt, reg, opt.Prog, opt.Description)
	if serr != nil {
		return nil, serr
	}
	return s.surface, nil
}

// JSON renders the surface as indented JSON.
func (s *Surface) JSON() ([]byte, error) {
	return gojson.MarshalIndent(s, "", "  ")
}
