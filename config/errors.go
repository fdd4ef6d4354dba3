// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is returned by Validate when a field is outside its range.
	ErrInvalidOption = errors.New("config: invalid option")

	// ErrConfigTooLarge signals a YAML file larger than MaxYAMLFileSize.
	ErrConfigTooLarge = errors.New("config: file too large")

	// ErrConfigParse signals a malformed YAML document or an unknown enum name.
	ErrConfigParse = errors.New("config: cannot parse")
)

// invalidf decorates ErrInvalidOption with the offending field.
func invalidf(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidOption, field, fmt.Sprintf(format, args...))
}
