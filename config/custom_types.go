/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes, e.g. of a log file before rotation.
// It's written either as a number of bytes or as a string like "250M" or "1Gi".
type ByteSize uint64

// String returns the size in the "100M" form.
func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := toByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// UnmarshalYAML accepts both YAML integers and strings.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: byte size must be a scalar", value.Line)
	}
	return b.UnmarshalText([]byte(value.Value))
}

// toByteSize converts a number of bytes or a human-readable string to ByteSize.
func toByteSize(val interface{}) (ByteSize, error) {
	s, isString := val.(string)
	if !isString {
		num, err := cast.ToInt64E(val)
		if err != nil {
			return 0, err
		}
		if num < 0 {
			return 0, fmt.Errorf("byte size must not be negative, got %d", num)
		}
		return ByteSize(num), nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if num, err := cast.ToInt64E(s); err == nil {
		return toByteSize(num)
	}
	// "Mi" and "Gi" mean the same as "M" and "G" for bytefmt.
	s = strings.TrimSuffix(s, "i")
	num, err := bytefmt.ToBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", val, err)
	}
	return ByteSize(num), nil
}
