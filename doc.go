// Package tyro derives command-line interfaces from Go types. A struct's
// fields become flags, nested structs become dot-prefixed flag groups,
// interfaces with registered variants become subcommand-style choices, and
// parsing reconstructs a fully typed value.
//
// The smallest program:
//
//	type Args struct {
//		Input   string `help:"input path"`
//		Workers int    `default:"4"`
//	}
//
//	func main() {
//		args := tyro.Cli[Args]()
//		...
//	}
//
// Parse is the error-returning variant for callers that want to handle
// Issues themselves. Custom token conversion plugs in through the
// constructors package.
package tyro
