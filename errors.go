package tyro

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Issue codes for input-time failures (exported consts for IDE completion and
// type safety by convention).
const (
	CodeRequired             = "required"
	CodeParseError           = "parse_error"
	CodeInvalidEnum          = "invalid_enum"
	CodeUnknownFlag          = "unknown_flag"
	CodeWrongArity           = "wrong_arity"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeInstantiation        = "instantiation"
)

// Issue codes for structural failures raised while deriving a schema. These
// indicate the target type cannot be represented as a CLI at all and are
// authoring-time bugs, not user-input errors.
const (
	CodeUnsupportedType     = "unsupported_type"
	CodeUnresolvedInterface = "unresolved_interface"
	CodeUnsupportedUnion    = "unsupported_union"
	CodeCyclicType          = "cyclic_type"
	CodeAmbiguousName       = "ambiguous_name"
	CodeInvalidDefault      = "invalid_default"
)

// Issue represents a single input-time validation entry.
type Issue struct {
	Path    string   // Dotted argument path (for example: opt.learning-rate).
	Code    string   // One of the input-time codes listed above.
	Message string
	Hint    string   // Optional: remediation hints, expected shapes, etc.
	Tokens  []string // Raw tokens that failed to convert, when applicable.
	Cause   error    // Optional: underlying error.
}

// Error renders a single issue as "code at path: message".
func (it Issue) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s at %s", it.Code, displayPath(it.Path))
	if it.Message != "" {
		fmt.Fprintf(b, ": %s", it.Message)
	}
	return b.String()
}

// Issues is a collection of input-time errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, displayPath(it.Path))
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// SchemaError reports that a target type cannot be turned into an argument
// schema. It is returned from the derivation phase only; reconstruction
// failures are reported as Issues.
type SchemaError struct {
	Code    string       // One of the structural codes listed above.
	Path    string       // Field path where derivation failed; empty at the root.
	Type    reflect.Type // Offending type, when known.
	Message string
	Hint    string
}

func (e *SchemaError) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "tyro: %s at %s", e.Code, displayPath(e.Path))
	if e.Type != nil {
		fmt.Fprintf(b, " (%s)", e.Type)
	}
	if e.Message != "" {
		fmt.Fprintf(b, ": %s", e.Message)
	}
	return b.String()
}

// AsSchemaError extracts a SchemaError from an error chain.
func AsSchemaError(err error) (*SchemaError, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrHelp is returned by Parse when the argument list requests usage output
// instead of a reconstruction.
var ErrHelp = errors.New("tyro: help requested")
