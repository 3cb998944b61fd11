/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DataType is a format of a configuration file.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// ErrUnsupportedDataType is returned for a configuration file whose extension is not known.
var ErrUnsupportedDataType = errors.New("unsupported config file format")

// DataTypeFromPath detects the format of a configuration file by its extension.
func DataTypeFromPath(path string) (DataType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("%w %q, use .yaml, .yml or .json", ErrUnsupportedDataType, ext)
	}
}

// DataProvider gives a configuration section access to the values of its keys.
// A value set in an environment variable wins over the config file, the file wins over the default.
type DataProvider interface {
	SetDefault(key string, value interface{})

	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetFloat64(key string) (float64, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetDuration(key string) (time.Duration, error)
	GetSizeInBytes(key string) (ByteSize, error)

	// GetStringSlice and GetInt64Slice accept a comma-separated string as well,
	// which is how lists come from environment variables.
	GetStringSlice(key string) ([]string, error)
	GetInt64Slice(key string) ([]int64, error)

	// UnmarshalKey decodes a nested structure. Fields of types implementing encoding.TextUnmarshaler
	// and durations written as strings are decoded too.
	UnmarshalKey(key string, rawVal interface{}) error

	// WithKeyPrefix returns a view of the same data where every key is looked up under prefix.
	WithKeyPrefix(prefix string) DataProvider

	WrapKeyErr(key string, err error) error
}

// KeyError is an error of a particular configuration key.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return e.Key + ": " + e.Err.Error()
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// WrapKeyErr wraps err with the full key where it occurred.
func WrapKeyErr(key string, err error) error {
	return &KeyError{Key: key, Err: err}
}

func joinKey(prefix, key string) string {
	return strings.Trim(prefix+"."+key, ".")
}
