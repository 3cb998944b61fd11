/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"errors"
	"fmt"
	"io"
)

// Source is a DataProvider that can read configuration data.
type Source interface {
	DataProvider
	ReadFile(path string, dataType DataType) error
	Read(r io.Reader, dataType DataType) error
}

// ErrNoSections is returned when Loader is called without configuration sections.
var ErrNoSections = errors.New("no configuration sections to load")

// Loader fills configuration sections. Defaults of all sections are registered first,
// so a section may rely on a default of another one.
type Loader struct {
	source Source
}

// NewDefaultLoader creates a new Loader reading the config file and environment variables with envVarsPrefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a new Loader on top of source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// LoadFile reads the file at path, in the format given by its extension, and fills the sections.
// With an empty path only defaults and environment variables are used.
func (l *Loader) LoadFile(path string, sections ...Config) error {
	if path != "" {
		dataType, err := DataTypeFromPath(path)
		if err != nil {
			return err
		}
		if err = l.source.ReadFile(path, dataType); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return l.fill(sections)
}

// LoadFromReader reads configuration data from r and fills the sections.
func (l *Loader) LoadFromReader(r io.Reader, dataType DataType, sections ...Config) error {
	if err := l.source.Read(r, dataType); err != nil {
		return fmt.Errorf("read %s config: %w", dataType, err)
	}
	return l.fill(sections)
}

func (l *Loader) fill(sections []Config) error {
	if len(sections) == 0 {
		return ErrNoSections
	}
	for _, section := range sections {
		section.SetProviderDefaults(dataProviderFor(section, l.source))
	}
	for _, section := range sections {
		if err := section.Set(dataProviderFor(section, l.source)); err != nil {
			return err
		}
	}
	return nil
}
