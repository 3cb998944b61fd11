/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wildcardbot/gatekeeper/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel          = "level"
	cfgKeyFormat         = "format"
	cfgKeyOutput         = "output"
	cfgKeyNoColor        = "noColor"
	cfgKeyAddCaller      = "addCaller"
	cfgKeyFilePath       = "file.path"
	cfgKeyFileMaxSize    = "file.maxSize"
	cfgKeyFileMaxBackups = "file.maxBackups"
	cfgKeyFileMaxAgeDays = "file.maxAgeDays"
	cfgKeyFileCompress   = "file.compress"
	cfgKeyMaskingEnabled = "masking.enabled"
	cfgKeyMaskingSecrets = "masking.secrets"
)

// Defaults and limits of the file output.
const (
	DefaultFileMaxSize    config.ByteSize = 100 * 1024 * 1024
	MinFileMaxSize        config.ByteSize = 1024 * 1024
	DefaultFileMaxBackups                 = 5
)

// Level is the minimal severity written to the output.
type Level string

// Severities, from the most to the least important.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format is the encoding of entries.
type Format string

// Supported encodings. Text is colored unless NoColor is set or the output is a file.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is where entries go.
type Output string

// Destinations of entries.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config is the "log" section of the bot configuration.
type Config struct {
	Level     Level         `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format        `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output        `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool          `mapstructure:"noColor" yaml:"noColor" json:"noColor"`
	AddCaller bool          `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileConfig    `mapstructure:"file" yaml:"file" json:"file"`
	Masking   MaskingConfig `mapstructure:"masking" yaml:"masking" json:"masking"`

	keyPrefix string
}

// FileConfig is used when Output is "file". The file is rotated by lumberjack.
type FileConfig struct {
	// Path may contain {{pid}} and {{starttime}} placeholders.
	Path       string          `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	Compress   bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// MaskingConfig controls hiding of secrets. DefaultSecrets are masked whenever masking is enabled,
// Secrets adds more of them.
type MaskingConfig struct {
	Enabled bool           `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Secrets []SecretConfig `mapstructure:"secrets" yaml:"secrets" json:"secrets"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption customizes a Config created by NewConfig or NewDefaultConfig.
type ConfigOption func(*Config)

// WithKeyPrefix moves the section from "log" to keyPrefix.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(c *Config) {
		c.keyPrefix = keyPrefix
	}
}

// NewConfig returns an empty Config to be filled by config.Loader.
func NewConfig(options ...ConfigOption) *Config {
	c := &Config{keyPrefix: cfgDefaultKeyPrefix}
	for _, apply := range options {
		apply(c)
	}
	return c
}

// NewDefaultConfig returns a Config holding the values used when keys are missing.
func NewDefaultConfig(options ...ConfigOption) *Config {
	c := NewConfig(options...)
	c.Level, c.Format, c.Output = LevelInfo, FormatJSON, OutputStdout
	c.File = FileConfig{MaxSize: DefaultFileMaxSize, MaxBackups: DefaultFileMaxBackups}
	c.Masking = MaskingConfig{Enabled: true}
	return c
}

// KeyPrefix implements config.KeyPrefixProvider.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	for key, val := range map[string]interface{}{
		cfgKeyLevel:          string(def.Level),
		cfgKeyFormat:         string(def.Format),
		cfgKeyOutput:         string(def.Output),
		cfgKeyFileMaxSize:    def.File.MaxSize.String(),
		cfgKeyFileMaxBackups: def.File.MaxBackups,
		cfgKeyMaskingEnabled: def.Masking.Enabled,
	} {
		dp.SetDefault(key, val)
	}
}

// Set implements config.Config.
func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Level, err = getEnum(dp, cfgKeyLevel, LevelError, LevelWarn, LevelInfo, LevelDebug); err != nil {
		return err
	}
	if c.Format, err = getEnum(dp, cfgKeyFormat, FormatJSON, FormatText); err != nil {
		return err
	}
	if c.Output, err = getEnum(dp, cfgKeyOutput, OutputStdout, OutputStderr, OutputFile); err != nil {
		return err
	}
	for key, dst := range map[string]*bool{cfgKeyNoColor: &c.NoColor, cfgKeyAddCaller: &c.AddCaller} {
		if *dst, err = dp.GetBool(key); err != nil {
			return err
		}
	}
	if err = c.File.set(dp, c.Output == OutputFile); err != nil {
		return err
	}
	return c.Masking.set(dp)
}

func (f *FileConfig) set(dp config.DataProvider, pathRequired bool) (err error) {
	if f.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if pathRequired && f.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("required for %q output", OutputFile))
	}
	if f.MaxSize, err = dp.GetSizeInBytes(cfgKeyFileMaxSize); err != nil {
		return err
	}
	if f.MaxSize < MinFileMaxSize {
		return dp.WrapKeyErr(cfgKeyFileMaxSize, fmt.Errorf("must be at least %s", MinFileMaxSize))
	}
	if f.MaxBackups, err = dp.GetInt(cfgKeyFileMaxBackups); err != nil {
		return err
	}
	if f.MaxBackups < 1 {
		return dp.WrapKeyErr(cfgKeyFileMaxBackups, errors.New("must be positive"))
	}
	if f.MaxAgeDays, err = dp.GetInt(cfgKeyFileMaxAgeDays); err != nil {
		return err
	}
	if f.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyFileMaxAgeDays, errors.New("must not be negative"))
	}
	f.Compress, err = dp.GetBool(cfgKeyFileCompress)
	return err
}

func (m *MaskingConfig) set(dp config.DataProvider) (err error) {
	if m.Enabled, err = dp.GetBool(cfgKeyMaskingEnabled); err != nil {
		return err
	}
	if err = dp.UnmarshalKey(cfgKeyMaskingSecrets, &m.Secrets); err != nil {
		return err
	}
	if _, err = NewMasker(m.Secrets); err != nil {
		return dp.WrapKeyErr(cfgKeyMaskingSecrets, err)
	}
	return nil
}

// getEnum reads one of values ignoring case and returns it in lower case.
func getEnum[T ~string](dp config.DataProvider, key string, values ...T) (T, error) {
	set := make([]string, 0, len(values))
	for _, v := range values {
		set = append(set, string(v))
	}
	s, err := dp.GetStringFromSet(key, set, true)
	return T(strings.ToLower(s)), err
}
