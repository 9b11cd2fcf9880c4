package tyro_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	tyro "github.com/mirceamironenco/tyro"
	"github.com/mirceamironenco/tyro/constructors"
)

func TestParseBooleans(t *testing.T) {
	type args struct {
		Boolean         bool
		OptionalBoolean *bool
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--boolean", "True"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !got.Boolean {
		t.Fatalf("Boolean = false, want true")
	}
	if got.OptionalBoolean != nil {
		t.Fatalf("OptionalBoolean = %v, want nil", *got.OptionalBoolean)
	}

	got, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--boolean", "False", "--optional-boolean", "False"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.OptionalBoolean == nil || *got.OptionalBoolean {
		t.Fatalf("OptionalBoolean = %v, want *false", got.OptionalBoolean)
	}

	got, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--boolean", "True", "--optional-boolean", "None"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.OptionalBoolean != nil {
		t.Fatalf("OptionalBoolean = %v, want nil after explicit None", *got.OptionalBoolean)
	}
}

func TestDefaultedBooleanFlagPairs(t *testing.T) {
	type args struct {
		FlagA bool `default:"false"`
		FlagB bool `default:"true"`
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--flag-a", "--no-flag-b"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !got.FlagA || got.FlagB {
		t.Fatalf("got %+v, want FlagA=true FlagB=false", got)
	}

	got, err = tyro.Parse[args](tyro.RunOpt{Args: []string{}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.FlagA || !got.FlagB {
		t.Fatalf("got %+v, want tag defaults FlagA=false FlagB=true", got)
	}
}

type fooCmd struct {
	X int
}

type barCmd struct {
	Y string
}

type command interface{}

func commandRegistry() *constructors.Registry {
	reg := constructors.NewRegistry()
	constructors.RegisterVariants[command](reg,
		constructors.Variant[fooCmd]("foo"),
		constructors.Variant[barCmd]("bar"),
	)
	return reg
}

func TestUnionSelection(t *testing.T) {
	reg := commandRegistry()

	got, err := tyro.Parse[command](tyro.RunOpt{Args: []string{"bar", "--y", "hi"}, Registry: reg})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(command(barCmd{Y: "hi"}), got); diff != "" {
		t.Fatalf("selected variant mismatch (-want +got):\n%s", diff)
	}
}

func TestUnionRequiredFieldsAreScoped(t *testing.T) {
	reg := commandRegistry()

	// foo.x is required, but only when foo is selected.
	got, err := tyro.Parse[command](tyro.RunOpt{Args: []string{"bar", "--y", "hi"}, Registry: reg})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := got.(barCmd); !ok {
		t.Fatalf("got %T, want barCmd", got)
	}

	_, err = tyro.Parse[command](tyro.RunOpt{Args: []string{"foo"}, Registry: reg})
	iss, ok := tyro.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("err = %v, want a single issue", err)
	}
	if iss[0].Code != tyro.CodeRequired || iss[0].Path != "foo.x" {
		t.Fatalf("issue = %+v, want required at foo.x", iss[0])
	}
}

func TestUnionDiscriminatorErrors(t *testing.T) {
	reg := commandRegistry()

	_, err := tyro.Parse[command](tyro.RunOpt{Args: []string{}, Registry: reg})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeDiscriminatorMissing {
		t.Fatalf("err = %v, want discriminator_missing", err)
	}

	_, err = tyro.Parse[command](tyro.RunOpt{Args: []string{"baz"}, Registry: reg})
	iss, ok = tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeDiscriminatorUnknown {
		t.Fatalf("err = %v, want discriminator_unknown", err)
	}
}

func TestUnionDefaultInstance(t *testing.T) {
	reg := commandRegistry()

	got, err := tyro.Parse[command](tyro.RunOpt{
		Args:     []string{},
		Registry: reg,
		Default:  fooCmd{X: 3},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(command(fooCmd{X: 3}), got); diff != "" {
		t.Fatalf("default variant mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedUnionFlagsArePrefixed(t *testing.T) {
	type args struct {
		Mode command
		Seed int `default:"0"`
	}
	reg := commandRegistry()

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"bar", "--mode.y", "hi", "--seed", "7"}, Registry: reg})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Mode: barCmd{Y: "hi"}, Seed: 7}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredNestedFieldPath(t *testing.T) {
	type opt struct {
		LearningRate float64
	}
	type args struct {
		Opt  opt
		Seed int `default:"0"`
	}

	_, err := tyro.Parse[args](tyro.RunOpt{Args: []string{}})
	iss, ok := tyro.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("err = %v, want one issue", err)
	}
	if iss[0].Code != tyro.CodeRequired || iss[0].Path != "opt.learning-rate" {
		t.Fatalf("issue = %+v, want required at opt.learning-rate", iss[0])
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--opt.learning-rate", "3e-4"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Opt.LearningRate != 3e-4 {
		t.Fatalf("LearningRate = %v, want 3e-4", got.Opt.LearningRate)
	}
}

func TestDefaultInstanceFillsFields(t *testing.T) {
	type opt struct {
		LearningRate float64
	}
	type args struct {
		Opt  opt
		Seed int
	}
	def := args{Opt: opt{LearningRate: 0.1}, Seed: 7}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--seed", "9"}, Default: def})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Opt: opt{LearningRate: 0.1}, Seed: 9}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultInstanceOverridesTag(t *testing.T) {
	type args struct {
		Addr    string `default:":8080"`
		Workers int    `default:"4"`
	}

	got, err := tyro.Parse[args](tyro.RunOpt{
		Args:    []string{"--workers", "16"},
		Default: args{Addr: ":9090", Workers: 8},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Addr: ":9090", Workers: 16}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	// Without an instance the tag default still applies.
	got, err = tyro.Parse[args](tyro.RunOpt{Args: []string{}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Addr != ":8080" || got.Workers != 4 {
		t.Fatalf("got %+v, want tag defaults", got)
	}
}

func TestDefaultInstanceOverridesVariantTag(t *testing.T) {
	type args struct {
		Mode command `default:"foo"`
	}
	reg := commandRegistry()

	got, err := tyro.Parse[args](tyro.RunOpt{
		Args:     []string{},
		Registry: reg,
		Default:  args{Mode: barCmd{Y: "hi"}},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(args{Mode: barCmd{Y: "hi"}}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionalStructStaysNil(t *testing.T) {
	type inner struct {
		Addr string
	}
	type outer struct {
		Name string `default:"svc"`
		Net  *inner
	}

	got, err := tyro.Parse[outer](tyro.RunOpt{Args: []string{}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Net != nil {
		t.Fatalf("Net = %+v, want nil when untouched", got.Net)
	}

	got, err = tyro.Parse[outer](tyro.RunOpt{Args: []string{"--net.addr", ":8080"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Net == nil || got.Net.Addr != ":8080" {
		t.Fatalf("Net = %+v, want Addr=:8080", got.Net)
	}
}

func TestSequencesAndMappings(t *testing.T) {
	type args struct {
		Tags   []string `default:"a,b"`
		Limits map[string]int
	}

	got, err := tyro.Parse[args](tyro.RunOpt{
		Args: []string{"--tags", "x", "y", "--limits", "reads", "10", "writes", "2"},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{
		Tags:   []string{"x", "y"},
		Limits: map[string]int{"reads": 10, "writes": 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--limits", "reads", "10"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got.Tags); diff != "" {
		t.Fatalf("tag default mismatch (-want +got):\n%s", diff)
	}

	_, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--limits", "reads"}})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeParseError {
		t.Fatalf("err = %v, want parse_error for dangling key", err)
	}
}

func TestChoicesTag(t *testing.T) {
	type args struct {
		Optim string `cli:"choices=adam|sgd" default:"adam"`
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--optim", "sgd"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Optim != "sgd" {
		t.Fatalf("Optim = %q, want sgd", got.Optim)
	}

	_, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--optim", "rmsprop"}})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeInvalidEnum {
		t.Fatalf("err = %v, want invalid_enum", err)
	}
}

func TestTupleField(t *testing.T) {
	type point struct {
		X, Y float64
	}
	type args struct {
		Origin point `cli:"tuple" default:"0,0"`
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--origin", "1.5", "2.5"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Origin: point{X: 1.5, Y: 2.5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFixedFieldIsNotSettable(t *testing.T) {
	type args struct {
		Version string `cli:"fixed" default:"1.2.3"`
		N       int    `default:"0"`
	}

	got, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--n", "1"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Version != "1.2.3" {
		t.Fatalf("Version = %q, want the fixed default", got.Version)
	}

	_, err = tyro.Parse[args](tyro.RunOpt{Args: []string{"--version", "2.0.0"}})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeUnknownFlag {
		t.Fatalf("err = %v, want unknown_flag for a fixed field", err)
	}
}

func TestSkippedField(t *testing.T) {
	type args struct {
		N      int `default:"1"`
		Hidden int `cli:"-"`
	}

	_, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--hidden", "2"}})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeUnknownFlag {
		t.Fatalf("err = %v, want unknown_flag for excluded field", err)
	}
}

type ratio struct {
	Num int `default:"1"`
	Den int `default:"1"`
}

func (r *ratio) Validate() error {
	if r.Den == 0 {
		return errors.New("denominator must be nonzero")
	}
	return nil
}

func TestValidateHook(t *testing.T) {
	_, err := tyro.Parse[ratio](tyro.RunOpt{Args: []string{"--den", "0"}})
	iss, ok := tyro.AsIssues(err)
	if !ok || iss[0].Code != tyro.CodeInstantiation {
		t.Fatalf("err = %v, want instantiation", err)
	}

	got, err := tyro.Parse[ratio](tyro.RunOpt{Args: []string{"--num", "3"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Num != 3 || got.Den != 1 {
		t.Fatalf("got %+v, want Num=3 Den=1", got)
	}
}

func TestNamedSpecOverride(t *testing.T) {
	type args struct {
		Extra map[string]any `cli:"with=json"`
	}

	// Without the named spec registered, derivation fails outright.
	_, err := tyro.Parse[args](tyro.RunOpt{Args: []string{}})
	se, ok := tyro.AsSchemaError(err)
	if !ok || se.Code != tyro.CodeUnsupportedType {
		t.Fatalf("err = %v, want unsupported_type schema error", err)
	}

	reg := constructors.NewRegistry()
	reg.Named("json", constructors.JSONSpec())
	got, err := tyro.Parse[args](tyro.RunOpt{
		Args:     []string{"--extra", `{"a": 1, "b": "two"}`},
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Extra: map[string]any{"a": float64(1), "b": "two"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnboundInterfacePinnedByDefault(t *testing.T) {
	type policy interface{}
	type retry struct {
		Attempts int
	}
	type args struct {
		Policy policy
	}

	// No variant bindings and no default: the shape is underivable.
	_, err := tyro.Parse[args](tyro.RunOpt{Args: []string{}})
	se, ok := tyro.AsSchemaError(err)
	if !ok || se.Code != tyro.CodeUnresolvedInterface {
		t.Fatalf("err = %v, want unresolved_interface", err)
	}

	// A default instance pins the concrete type and flattens its fields.
	got, err := tyro.Parse[args](tyro.RunOpt{
		Args:    []string{"--policy.attempts", "5"},
		Default: args{Policy: retry{Attempts: 3}},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := args{Policy: retry{Attempts: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpRequest(t *testing.T) {
	type args struct {
		N int `default:"0"`
	}
	_, err := tyro.Parse[args](tyro.RunOpt{Args: []string{"--help"}})
	if !errors.Is(err, tyro.ErrHelp) {
		t.Fatalf("err = %v, want ErrHelp", err)
	}
}

func TestInvalidDefaultOption(t *testing.T) {
	type args struct {
		N int `default:"0"`
	}
	_, err := tyro.Parse[args](tyro.RunOpt{Default: "not an args"})
	se, ok := tyro.AsSchemaError(err)
	if !ok || se.Code != tyro.CodeInvalidDefault {
		t.Fatalf("err = %v, want invalid_default schema error", err)
	}
}
