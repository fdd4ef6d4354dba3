// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize caps configuration files at 1 MiB.
const MaxYAMLFileSize = 1 << 20

// Load reads a YAML file and decodes it over Default().
// Implementation:
//   - Stage 1: stat the file and reject anything larger than MaxYAMLFileSize.
//   - Stage 2: delegate to Parse.
//
// Errors:
//   - os errors from Stat/ReadFile, ErrConfigTooLarge, and Parse errors.
func Load(path string) (Options, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if info.Size() > MaxYAMLFileSize {
		return Options{}, fmt.Errorf("%w: %s is %d bytes", ErrConfigTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document over Default() and validates the result.
// Keys absent from the document keep their defaults; unknown keys are rejected.
func Parse(data []byte) (Options, error) {
	o := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, ErrConfigParse) {
			return Options{}, err
		}
		return Options{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}

	return o, nil
}

// Marshal encodes o as YAML. The logger is not serialized.
func Marshal(o Options) ([]byte, error) {
	return yaml.Marshal(o)
}
