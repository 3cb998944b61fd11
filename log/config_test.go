/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildcardbot/gatekeeper/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "empty config",
			cfgData:     ``,
			expectedCfg: func() *Config { return NewDefaultConfig() },
		},
		{
			name: "file output",
			cfgData: `
log:
  level: WARN
  format: text
  output: file
  file:
    path: wildcardbot-{{pid}}.log
    compress: true
    maxSize: 250M
    maxBackups: 42
    maxAgeDays: 7
  addCaller: true
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelWarn
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.File = FileConfig{
					Path:       "wildcardbot-{{pid}}.log",
					MaxSize:    250 * 1024 * 1024,
					MaxBackups: 42,
					MaxAgeDays: 7,
					Compress:   true,
				}
				cfg.AddCaller = true
				return cfg
			},
		},
		{
			name: "extra secrets",
			cfgData: `
log:
  masking:
    secrets:
      - name: "chat_token"
        formats: ["json", "query"]
      - name: "phone"
        patterns:
          - regexp: '\+\d{11}'
            replacement: "+***"
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Masking.Secrets = []SecretConfig{
					{Name: "chat_token", Formats: []SecretFormat{SecretFormatJSON, SecretFormatQuery}},
					{Name: "phone", Patterns: []PatternConfig{{RegExp: `\+\d{11}`, Replacement: "+***"}}},
				}
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name           string
		cfgData        string
		expectedErrMsg string
	}{
		{
			name:           "unknown level",
			cfgData:        "log:\n  level: trace\n",
			expectedErrMsg: `log.level: "trace" is not allowed, use one of: error, warn, info, debug`,
		},
		{
			name:           "file output without path",
			cfgData:        "log:\n  output: file\n",
			expectedErrMsg: `log.file.path: required for "file" output`,
		},
		{
			name:           "max size too small",
			cfgData:        "log:\n  file:\n    maxSize: 1K\n",
			expectedErrMsg: "log.file.maxSize: must be at least 1M",
		},
		{
			name:           "no backups",
			cfgData:        "log:\n  file:\n    maxBackups: 0\n",
			expectedErrMsg: "log.file.maxBackups: must be positive",
		},
		{
			name:           "negative max age",
			cfgData:        "log:\n  file:\n    maxAgeDays: -1\n",
			expectedErrMsg: "log.file.maxAgeDays: must not be negative",
		},
		{
			name:           "secret with unknown format",
			cfgData:        "log:\n  masking:\n    secrets:\n      - name: pin\n        formats: [xml]\n",
			expectedErrMsg: `log.masking.secrets: secret "pin": unknown format "xml"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, NewConfig())
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfg := NewConfig(WithKeyPrefix("logging"))
	err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
		bytes.NewBufferString("logging:\n  level: debug\n"), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, LevelDebug, cfg.Level)
	require.Equal(t, "logging", cfg.KeyPrefix())
}
