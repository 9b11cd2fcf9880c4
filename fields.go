package tyro

import (
	"reflect"
	"strings"
	"unicode"
)

// fieldMeta carries the per-field overrides read from struct tags. The
// cli tag holds comma-separated options: name=..., metavar=..., with=...,
// choices=a|b|c, positional, fixed, tuple, or "-" to exclude the field.
// help and default are separate tags.
type fieldMeta struct {
	Name          string // Custom flag name; empty means derive from the field name.
	Positional    bool
	Fixed         bool
	Tuple         bool
	Skip          bool
	Metavar       string
	Choices       []string
	With          string // Named spec override.
	Help          string
	DefaultTokens []string
	HasDefaultTag bool
}

func parseFieldMeta(sf reflect.StructField) fieldMeta {
	var m fieldMeta
	if tag, ok := sf.Tag.Lookup("cli"); ok {
		if tag == "-" {
			m.Skip = true
			return m
		}
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
			case part == "positional":
				m.Positional = true
			case part == "fixed":
				m.Fixed = true
			case part == "tuple":
				m.Tuple = true
			case strings.HasPrefix(part, "name="):
				m.Name = strings.TrimPrefix(part, "name=")
			case strings.HasPrefix(part, "metavar="):
				m.Metavar = strings.TrimPrefix(part, "metavar=")
			case strings.HasPrefix(part, "with="):
				m.With = strings.TrimPrefix(part, "with=")
			case strings.HasPrefix(part, "choices="):
				m.Choices = strings.Split(strings.TrimPrefix(part, "choices="), "|")
			}
		}
	}
	m.Help = sf.Tag.Get("help")
	if tag, ok := sf.Tag.Lookup("default"); ok {
		m.HasDefaultTag = true
		m.DefaultTokens = strings.Split(tag, ",")
	}
	return m
}

// resolveFieldName returns the external name for a struct field: the cli
// name= override when present, otherwise the kebab-cased field name.
func resolveFieldName(sf reflect.StructField, m fieldMeta) string {
	if m.Name != "" {
		return m.Name
	}
	return kebab(sf.Name)
}

// kebab converts a Go field name to its flag form: FlagA -> flag-a,
// HTTPServer -> http-server, LearningRate -> learning-rate.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 &&
				(unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
					(i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if boundary {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '_' {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// joinPath joins path segments with dots, skipping empty segments.
func joinPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// FieldSpec describes one field of the target: its position in the flat
// namespace, its documentation, and its default.
type FieldSpec struct {
	Name       string // External field name (kebab-cased or name= override).
	Path       string // Unique flat key; variant segments included.
	Flag       string // Display name; variant segments omitted.
	Help       string
	Required   bool
	HasDefault bool
	Default    any
	Positional bool
	Fixed      bool
}
