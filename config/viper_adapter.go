/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperAdapter is a DataProvider backed by viper. Views created by WithKeyPrefix share the data
// of the adapter they were created from.
type ViperAdapter struct {
	viper  *viper.Viper
	prefix string
}

var _ Source = (*ViperAdapter)(nil)

// NewViperAdapter creates a new ViperAdapter.
func NewViperAdapter() *ViperAdapter {
	return &ViperAdapter{viper: viper.New()}
}

// UseEnvVars makes environment variables override configuration values.
// With the "wildcardbot" prefix the "telegram.token" key is read from WILDCARDBOT_TELEGRAM_TOKEN.
func (va *ViperAdapter) UseEnvVars(prefix string) {
	va.viper.SetEnvPrefix(prefix)
	va.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	va.viper.AutomaticEnv()
}

// ReadFile reads configuration data from the file at path.
func (va *ViperAdapter) ReadFile(path string, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	va.viper.SetConfigFile(path)
	return va.viper.ReadInConfig()
}

// Read reads configuration data from r.
func (va *ViperAdapter) Read(r io.Reader, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadConfig(r)
}

// WithKeyPrefix implements DataProvider.
func (va *ViperAdapter) WithKeyPrefix(prefix string) DataProvider {
	return &ViperAdapter{viper: va.viper, prefix: joinKey(va.prefix, prefix)}
}

// SetDefault implements DataProvider.
func (va *ViperAdapter) SetDefault(key string, value interface{}) {
	va.viper.SetDefault(joinKey(va.prefix, key), value)
}

// GetBool implements DataProvider.
func (va *ViperAdapter) GetBool(key string) (bool, error) {
	return getAs(va, key, cast.ToBoolE)
}

// GetInt implements DataProvider.
func (va *ViperAdapter) GetInt(key string) (int, error) {
	return getAs(va, key, cast.ToIntE)
}

// GetFloat64 implements DataProvider.
func (va *ViperAdapter) GetFloat64(key string) (float64, error) {
	return getAs(va, key, cast.ToFloat64E)
}

// GetString implements DataProvider.
func (va *ViperAdapter) GetString(key string) (string, error) {
	return getAs(va, key, cast.ToStringE)
}

// GetDuration implements DataProvider.
func (va *ViperAdapter) GetDuration(key string) (time.Duration, error) {
	return getAs(va, key, cast.ToDurationE)
}

// GetSizeInBytes implements DataProvider.
func (va *ViperAdapter) GetSizeInBytes(key string) (ByteSize, error) {
	return getAs(va, key, toByteSize)
}

// GetStringSlice implements DataProvider.
func (va *ViperAdapter) GetStringSlice(key string) ([]string, error) {
	return getAs(va, key, func(val interface{}) ([]string, error) {
		return cast.ToStringSliceE(splitList(val))
	})
}

// GetInt64Slice implements DataProvider.
func (va *ViperAdapter) GetInt64Slice(key string) ([]int64, error) {
	return getAs(va, key, func(val interface{}) ([]int64, error) {
		items, err := cast.ToSliceE(splitList(val))
		if err != nil || len(items) == 0 {
			return nil, err
		}
		res := make([]int64, 0, len(items))
		for _, item := range items {
			num, castErr := cast.ToInt64E(item)
			if castErr != nil {
				return nil, castErr
			}
			res = append(res, num)
		}
		return res, nil
	})
}

// GetStringFromSet implements DataProvider.
func (va *ViperAdapter) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := va.GetString(key)
	if err != nil {
		return "", err
	}
	for _, allowed := range set {
		if str == allowed || (ignoreCase && strings.EqualFold(str, allowed)) {
			return str, nil
		}
	}
	return "", va.WrapKeyErr(key, fmt.Errorf("%q is not allowed, use one of: %s", str, strings.Join(set, ", ")))
}

// UnmarshalKey implements DataProvider.
func (va *ViperAdapter) UnmarshalKey(key string, rawVal interface{}) error {
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := va.viper.UnmarshalKey(joinKey(va.prefix, key), rawVal, hook); err != nil {
		return va.WrapKeyErr(key, err)
	}
	return nil
}

// WrapKeyErr implements DataProvider. The key in the error includes the prefix of the view.
func (va *ViperAdapter) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(joinKey(va.prefix, key), err)
}

// getAs reads the value of key and converts it with castFn. A missing key gives the zero value.
func getAs[T any](va *ViperAdapter, key string, castFn func(interface{}) (T, error)) (T, error) {
	var res T
	val := va.viper.Get(joinKey(va.prefix, key))
	if val == nil {
		return res, nil
	}
	res, err := castFn(val)
	if err != nil {
		var zero T
		return zero, va.WrapKeyErr(key, err)
	}
	return res, nil
}

// splitList turns "1, 2,3" into a list, other values are returned as is.
func splitList(val interface{}) interface{} {
	s, ok := val.(string)
	if !ok {
		return val
	}
	if s = strings.TrimSpace(s); s == "" {
		return []interface{}(nil)
	}
	parts := strings.Split(s, ",")
	items := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		items = append(items, strings.TrimSpace(p))
	}
	return items
}
