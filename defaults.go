package tyro

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultFromYAML decodes a YAML document into a T suitable for RunOpt's
// Default field, layering config-file defaults under the command line.
func DefaultFromYAML[T any](r io.Reader) (T, error) {
	var v T
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("tyro: decoding YAML defaults: %w", err)
	}
	return v, nil
}

// DefaultFromTOML is the TOML counterpart of DefaultFromYAML.
func DefaultFromTOML[T any](r io.Reader) (T, error) {
	var v T
	if _, err := toml.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("tyro: decoding TOML defaults: %w", err)
	}
	return v, nil
}
