package tyro

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/mirceamironenco/tyro/constructors"
)

// RunOpt configures a single Parse or Cli invocation. The zero value works:
// os.Args, a fresh registry, the default front end, stderr output.
type RunOpt struct {
	Prog        string
	Description string
	Args        []string // nil means os.Args[1:]; empty slice means no arguments.
	Default     any      // T or *T instance whose field values become defaults.
	Registry    *constructors.Registry
	Frontend    Frontend
	Output      io.Writer // Usage and error destination for Cli.
}

// Parse derives an argument schema from T, parses the arguments, and
// reconstructs a T. User input problems come back as Issues; a T that cannot
// be represented as a CLI at all comes back as *SchemaError. A help request
// returns ErrHelp.
func Parse[T any](opts ...RunOpt) (T, error) {
	v, _, err := run[T](opts...)
	return v, err
}

// Cli is the exit-on-error wrapper around Parse: it prints usage and exits 0
// on --help, prints the error with usage and exits 2 on bad input, and
// panics on schema derivation failure since that is a programming error.
func Cli[T any](opts ...RunOpt) T {
	out := io.Writer(os.Stderr)
	if len(opts) > 0 && opts[0].Output != nil {
		out = opts[0].Output
	}
	v, s, err := run[T](opts...)
	switch {
	case err == nil:
		return v
	case errors.Is(err, ErrHelp):
		writeUsage(out, s.surface)
		osExit(0)
	default:
		if se, ok := AsSchemaError(err); ok {
			panic(se.Error())
		}
		writeError(out, s.surface, err)
		osExit(2)
	}
	return v
}

// Stubbed in tests.
var osExit = os.Exit

func run[T any](opts ...RunOpt) (T, *schema, error) {
	var zero T
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
		return zero, nil, serr
	}

	prog := opt.Prog
	if prog == "" {
		prog = filepath.Base(os.Args[0])
	}

	s, serr := buildSchema(t, dflt, reg, prog, opt.Description)
	if serr != nil {
		return zero, nil, serr
	}

	argv := opt.Args
	if argv == nil {
		argv = os.Args[1:]
	}
	fe := opt.Frontend
	if fe == nil {
		fe = ArgvFrontend{}
	}
	res, err := fe.Parse(s.surface, argv)
	if err != nil {
		return zero, s, err
	}
	if res.HelpRequested {
		return zero, s, ErrHelp
	}

	rv, iss := assembleRoot(s, res)
	if len(iss) > 0 {
		return zero, s, iss
	}
	return rv.Interface().(T), s, nil
}

// defaultValueFor normalizes the Default option into a reflect value of the
// target type. Interface targets need rewrapping: reflect.ValueOf strips the
// interface down to the concrete value.
func defaultValueFor(t reflect.Type, def any) (reflect.Value, *SchemaError) {
	if def == nil {
		return reflect.Value{}, nil
	}
	dv := reflect.ValueOf(def)
	switch {
	case dv.Type() == t:
		return dv, nil
	case dv.Kind() == reflect.Pointer && dv.Type().Elem() == t:
		if dv.IsNil() {
			return reflect.Value{}, nil
		}
		return dv.Elem(), nil
	case t.Kind() == reflect.Interface && dv.Type().Implements(t):
		iv := reflect.New(t).Elem()
		iv.Set(dv)
		return iv, nil
	}
	return reflect.Value{}, &SchemaError{Code: CodeInvalidDefault, Type: t,
		Message: fmt.Sprintf("default has type %T, want %s", def, t)}
}
