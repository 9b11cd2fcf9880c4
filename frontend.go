package tyro

import (
	"fmt"
	"strings"

	"github.com/mirceamironenco/tyro/i18n"
)

// ParseResult is the flat outcome of a front-end parse: raw token lists per
// argument path plus the selected tag per union discriminant. The
// reconstructor consumes it bottom-up; the front end never interprets
// tokens beyond grouping them.
type ParseResult struct {
	Values        map[string][]string
	Selected      map[string]string
	HelpRequested bool
}

// Frontend maps raw command-line input onto a Surface. Implementations own
// the flag syntax; everything type-aware happens behind the Surface.
type Frontend interface {
	Parse(s *Surface, argv []string) (*ParseResult, error)
}

// ArgvFrontend is the default front end: GNU-style --flag parsing with
// =-joined values, --no- counterparts for defaulted booleans, and bare
// tokens feeding positionals and union discriminants in declaration order.
type ArgvFrontend struct{}

func (ArgvFrontend) Parse(s *Surface, argv []string) (*ParseResult, error) {
	p := &argvParser{
		surface: s,
		argv:    argv,
		res: &ParseResult{
			Values:   map[string][]string{},
			Selected: map[string]string{},
		},
		posDone: map[int]bool{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.res, nil
}

type argvParser struct {
	surface *Surface
	argv    []string
	i       int
	res     *ParseResult
	posDone map[int]bool
}

func (p *argvParser) run() error {
	for p.i < len(p.argv) {
		arg := p.argv[p.i]
		switch {
		case arg == "--help" || arg == "-h":
			p.res.HelpRequested = true
			return nil
		case strings.HasPrefix(arg, "--"):
			if err := p.flag(arg); err != nil {
				return err
			}
		default:
			if err := p.bare(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

// active reports whether an argument's union gates are all satisfied by the
// selections made so far. Selection happens left to right, so a variant's
// flags come alive only after its discriminant token.
func (p *argvParser) active(gates []Gate) bool {
	for _, g := range gates {
		if p.res.Selected[g.Choice] != g.Tag {
			return false
		}
	}
	return true
}

func (p *argvParser) lookup(flag string) *LeafInfo {
	for i := range p.surface.Args {
		a := &p.surface.Args[i]
		if a.Positional || !p.active(a.Gates) {
			continue
		}
		if a.Flag == flag {
			return a
		}
	}
	return nil
}

func (p *argvParser) flag(arg string) error {
	name := strings.TrimPrefix(arg, "--")
	eqVal, hasEq := "", false
	if k := strings.IndexByte(name, '='); k >= 0 {
		name, eqVal, hasEq = name[:k], name[k+1:], true
	}
	p.i++

	if a := p.lookup(name); a != nil {
		if a.BoolFlag && !hasEq {
			p.res.Values[a.Path] = []string{"True"}
			return nil
		}
		return p.values(a, eqVal, hasEq)
	}
	if base, ok := strings.CutPrefix(name, "no-"); ok && !hasEq {
		if a := p.lookup(base); a != nil && a.BoolFlag {
			p.res.Values[a.Path] = []string{"False"}
			return nil
		}
	}
	return issuef("", CodeUnknownFlag, []string{arg},
		fmt.Sprintf("unrecognized flag --%s; run %s --help for the argument list", name, p.surface.Prog))
}

func (p *argvParser) values(a *LeafInfo, eqVal string, hasEq bool) error {
	if hasEq {
		if a.Nargs != 1 && a.Nargs != Variadic {
			return issuef(a.Path, CodeWrongArity, []string{eqVal},
				fmt.Sprintf("--%s takes %d values; --flag=value passes one", a.Flag, a.Nargs))
		}
		p.res.Values[a.Path] = []string{eqVal}
		return nil
	}
	tokens, err := p.consume(a)
	if err != nil {
		return err
	}
	p.res.Values[a.Path] = tokens
	return nil
}

// consume collects value tokens following a flag or starting at a
// positional: exactly Nargs tokens for fixed arity, everything up to the
// next flag for variadic arguments.
func (p *argvParser) consume(a *LeafInfo) ([]string, error) {
	if a.Nargs == Variadic {
		var tokens []string
		for p.i < len(p.argv) && !strings.HasPrefix(p.argv[p.i], "--") {
			tokens = append(tokens, p.argv[p.i])
			p.i++
		}
		return tokens, nil
	}
	tokens := make([]string, 0, a.Nargs)
	for n := 0; n < a.Nargs; n++ {
		if p.i >= len(p.argv) || strings.HasPrefix(p.argv[p.i], "--") {
			return nil, issuef(a.Path, CodeWrongArity, tokens,
				fmt.Sprintf("--%s expects %s (%d values), got %d", a.Flag, a.Metavar, a.Nargs, len(tokens)))
		}
		tokens = append(tokens, p.argv[p.i])
		p.i++
	}
	return tokens, nil
}

// bare routes a non-flag token to the earliest pending positional or union
// discriminant still active under the current selections.
func (p *argvParser) bare(tok string) error {
	var leaf *LeafInfo
	var choice *ChoiceInfo
	next := -1
	for i := range p.surface.Args {
		a := &p.surface.Args[i]
		if !a.Positional || p.posDone[a.Index] || !p.active(a.Gates) {
			continue
		}
		if next == -1 || a.Index < next {
			leaf, choice, next = a, nil, a.Index
		}
	}
	for i := range p.surface.Choices {
		c := &p.surface.Choices[i]
		if _, done := p.res.Selected[c.Path]; done || !p.active(c.Gates) {
			continue
		}
		if next == -1 || c.Index < next {
			leaf, choice, next = nil, c, c.Index
		}
	}

	switch {
	case choice != nil:
		if !contains(choice.Tags, tok) {
			return issuef(choice.Path, CodeDiscriminatorUnknown, []string{tok},
				fmt.Sprintf("expected one of %s", strings.Join(choice.Tags, ", ")))
		}
		p.res.Selected[choice.Path] = tok
		p.i++
		return nil
	case leaf != nil:
		tokens, err := p.consume(leaf)
		if err != nil {
			return err
		}
		p.posDone[leaf.Index] = true
		p.res.Values[leaf.Path] = tokens
		return nil
	}
	return issuef("", CodeUnknownFlag, []string{tok},
		fmt.Sprintf("unexpected argument %q", tok))
}

func issuef(path, code string, tokens []string, hint string) error {
	return Issues{{
		Path:    path,
		Code:    code,
		Message: i18n.T(code, nil),
		Hint:    hint,
		Tokens:  tokens,
	}}
}
