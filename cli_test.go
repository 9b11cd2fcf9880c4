package tyro

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	osExit = func(c int) { code = c }
	t.Cleanup(func() { osExit = os.Exit })
	return &code
}

func TestCliExitsOnBadInput(t *testing.T) {
	code := stubExit(t)
	var buf bytes.Buffer

	type args struct {
		N int `default:"0"`
	}
	Cli[args](RunOpt{Args: []string{"--bogus"}, Output: &buf})

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	out := buf.String()
	if !strings.Contains(out, "unknown_flag") {
		t.Fatalf("output missing error code:\n%s", out)
	}
	if !strings.Contains(out, "usage:") {
		t.Fatalf("output missing usage line:\n%s", out)
	}
}

func TestCliPrintsUsageOnHelp(t *testing.T) {
	code := stubExit(t)
	var buf bytes.Buffer

	type args struct {
		LearningRate float64 `help:"optimizer step size"`
		Verbose      bool    `default:"false"`
	}
	Cli[args](RunOpt{Prog: "train", Args: []string{"--help"}, Output: &buf})

	if *code != 0 {
		t.Fatalf("exit code = %d, want 0", *code)
	}
	out := buf.String()
	for _, want := range []string{"train", "--learning-rate", "optimizer step size", "--no-verbose"} {
		if !strings.Contains(out, want) {
			t.Fatalf("usage output missing %q:\n%s", want, out)
		}
	}
}

func TestCliPanicsOnSchemaError(t *testing.T) {
	stubExit(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for underivable target type")
		}
	}()

	type args struct {
		C chan int
	}
	Cli[args](RunOpt{Args: []string{}})
}
