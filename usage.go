package tyro

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

var (
	headColor = color.New(color.Bold)
	flagColor = color.New(color.FgCyan)
	errColor  = color.New(color.FgRed, color.Bold)
)

// surfaceItem interleaves arguments and discriminants back into declaration
// order for rendering.
type surfaceItem struct {
	leaf   *LeafInfo
	choice *ChoiceInfo
	index  int
}

func orderedItems(s *Surface) []surfaceItem {
	items := make([]surfaceItem, 0, len(s.Args)+len(s.Choices))
	for i := range s.Args {
		items = append(items, surfaceItem{leaf: &s.Args[i], index: s.Args[i].Index})
	}
	for i := range s.Choices {
		items = append(items, surfaceItem{choice: &s.Choices[i], index: s.Choices[i].Index})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].index < items[j].index })
	return items
}

func writeUsage(w io.Writer, s *Surface) {
	fmt.Fprintf(w, "%s %s\n", headColor.Sprint("usage:"), synopsis(s))
	if s.Description != "" {
		fmt.Fprintf(w, "\n%s\n", s.Description)
	}

	var positionals, options []surfaceItem
	for _, it := range orderedItems(s) {
		switch {
		case it.choice != nil:
			positionals = append(positionals, it)
		case it.leaf.Positional:
			positionals = append(positionals, it)
		default:
			options = append(options, it)
		}
	}

	if len(positionals) > 0 {
		fmt.Fprintf(w, "\n%s\n", headColor.Sprint("arguments:"))
		for _, it := range positionals {
			if it.choice != nil {
				left := "{" + strings.Join(it.choice.Tags, ",") + "}"
				writeItem(w, left, it.choice.Help, choiceDetail(it.choice), it.choice.Gates)
				continue
			}
			writeItem(w, strings.ToUpper(it.leaf.Metavar), it.leaf.Help, leafDetail(it.leaf), it.leaf.Gates)
		}
	}

	fmt.Fprintf(w, "\n%s\n", headColor.Sprint("options:"))
	writeItem(w, flagColor.Sprint("--help")+", "+flagColor.Sprint("-h"), "show this message and exit", "", nil)
	for _, it := range options {
		a := it.leaf
		left := flagColor.Sprint("--"+a.Flag) + " " + a.Metavar
		if a.BoolFlag {
			left = flagColor.Sprint("--"+a.Flag) + " | " + flagColor.Sprint("--no-"+a.Flag)
		}
		writeItem(w, left, a.Help, leafDetail(a), a.Gates)
	}
}

func writeItem(w io.Writer, left, help, detail string, gates []Gate) {
	fmt.Fprintf(w, "  %s\n", left)
	if help != "" {
		fmt.Fprintf(w, "      %s\n", help)
	}
	if detail != "" {
		fmt.Fprintf(w, "      %s\n", detail)
	}
	if len(gates) > 0 {
		tags := make([]string, 0, len(gates))
		for _, g := range gates {
			tags = append(tags, g.Tag)
		}
		fmt.Fprintf(w, "      (applies to: %s)\n", strings.Join(tags, " "))
	}
}

func leafDetail(a *LeafInfo) string {
	if a.Required {
		return "(required)"
	}
	if len(a.DefaultTokens) > 0 {
		return fmt.Sprintf("(default: %s)", strings.Join(a.DefaultTokens, " "))
	}
	return ""
}

func choiceDetail(c *ChoiceInfo) string {
	if c.DefaultTag != "" {
		return fmt.Sprintf("(default: %s)", c.DefaultTag)
	}
	return "(required)"
}

// synopsis renders the one-line usage summary: program name, a placeholder
// for options, then positionals and discriminants in order.
func synopsis(s *Surface) string {
	var b strings.Builder
	b.WriteString(s.Prog)
	b.WriteString(" [options]")
	for _, it := range orderedItems(s) {
		switch {
		case it.choice != nil && len(it.choice.Gates) == 0:
			b.WriteString(" {" + strings.Join(it.choice.Tags, ",") + "}")
		case it.choice == nil && it.leaf.Positional && len(it.leaf.Gates) == 0:
			b.WriteString(" " + strings.ToUpper(it.leaf.Metavar))
		}
	}
	return b.String()
}

func writeError(w io.Writer, s *Surface, err error) {
	if iss, ok := AsIssues(err); ok {
		for _, is := range iss {
			fmt.Fprintf(w, "%s %s\n", errColor.Sprint("error:"), is.Error())
			if is.Hint != "" {
				fmt.Fprintf(w, "  %s\n", is.Hint)
			}
		}
	} else {
		fmt.Fprintf(w, "%s %v\n", errColor.Sprint("error:"), err)
	}
	fmt.Fprintf(w, "%s %s\n", headColor.Sprint("usage:"), synopsis(s))
}
