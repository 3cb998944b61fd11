/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SecretFormat is a way a named secret is written. Only the value is replaced, the name stays.
type SecretFormat string

// Secret formats.
const (
	SecretFormatHeader SecretFormat = "header" // "Name: value\r\n"
	SecretFormatJSON   SecretFormat = "json"   // "name": "value"
	SecretFormatQuery  SecretFormat = "query"  // name=value
)

// SecretConfig describes a secret to hide. Its patterns run only when Name occurs in the text, ignoring case.
type SecretConfig struct {
	Name     string          `mapstructure:"name" yaml:"name" json:"name"`
	Formats  []SecretFormat  `mapstructure:"formats" yaml:"formats" json:"formats"`
	Patterns []PatternConfig `mapstructure:"patterns" yaml:"patterns" json:"patterns"`
}

// PatternConfig replaces every match of RegExp with Replacement.
type PatternConfig struct {
	RegExp      string `mapstructure:"regexp" yaml:"regexp" json:"regexp"`
	Replacement string `mapstructure:"replacement" yaml:"replacement" json:"replacement"`
}

// DefaultSecrets are the Telegram bot token and Cloudflare credentials.
// The bot token is a part of every Bot API URL, so any transport error would print it otherwise.
var DefaultSecrets = []SecretConfig{
	{Name: "bot", Patterns: []PatternConfig{{RegExp: `bot\d+:[A-Za-z0-9_-]+`, Replacement: "bot***"}}},
	{Name: "Authorization", Formats: []SecretFormat{SecretFormatHeader}},
	{Name: "X-Auth-Key", Formats: []SecretFormat{SecretFormatHeader}},
	{Name: "api_key", Formats: []SecretFormat{SecretFormatJSON, SecretFormatQuery}},
	{Name: "apiToken", Formats: []SecretFormat{SecretFormatJSON, SecretFormatQuery}},
}

type pattern struct {
	re          *regexp.Regexp
	replacement string
}

type secret struct {
	marker   string
	patterns []pattern
}

// Masker hides secrets in arbitrary strings.
type Masker struct {
	secrets []secret
}

// NewMasker compiles the secrets into a Masker.
func NewMasker(secrets []SecretConfig) (*Masker, error) {
	m := &Masker{secrets: make([]secret, 0, len(secrets))}
	for _, cfg := range secrets {
		s, err := compileSecret(cfg)
		if err != nil {
			return nil, err
		}
		m.secrets = append(m.secrets, s)
	}
	return m, nil
}

func compileSecret(cfg SecretConfig) (secret, error) {
	if cfg.Name == "" {
		return secret{}, errors.New("secret name cannot be empty")
	}
	s := secret{marker: strings.ToLower(cfg.Name)}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p.RegExp)
		if err != nil {
			return secret{}, fmt.Errorf("secret %q: %w", cfg.Name, err)
		}
		s.patterns = append(s.patterns, pattern{re, p.Replacement})
	}
	name := regexp.QuoteMeta(cfg.Name)
	for _, format := range cfg.Formats {
		switch format {
		case SecretFormatHeader:
			s.patterns = append(s.patterns, pattern{
				regexp.MustCompile(`(?i)` + name + `: .+?\r\n`), cfg.Name + ": ***\r\n"})
		case SecretFormatJSON:
			s.patterns = append(s.patterns, pattern{
				regexp.MustCompile(`(?i)"` + name + `"\s*:\s*".*?[^\\]"`), `"` + cfg.Name + `": "***"`})
		case SecretFormatQuery:
			s.patterns = append(s.patterns, pattern{
				regexp.MustCompile(`(?i)` + name + `\s*=\s*[^&\s]+`), cfg.Name + "=***"})
		default:
			return secret{}, fmt.Errorf("secret %q: unknown format %q", cfg.Name, format)
		}
	}
	return s, nil
}

// Mask returns s with all known secrets replaced.
func (m *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, sec := range m.secrets {
		if !strings.Contains(lower, sec.marker) {
			continue
		}
		for _, p := range sec.patterns {
			s = p.re.ReplaceAllString(s, p.replacement)
		}
	}
	return s
}
