/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration of the bot from YAML/JSON files and environment variables.
//
// Every configuration section implements the Config interface: it registers its defaults
// in a DataProvider and then reads and validates its values from it. Sections that implement
// KeyPrefixProvider see only the keys under their prefix.
package config

import "reflect"

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults for every exported non-nil field of obj
// that implements Config. obj must be a pointer to a struct.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	for _, section := range nestedSections(obj) {
		section.SetProviderDefaults(dataProviderFor(section, dp))
	}
}

// CallSetForFields calls Set for every exported non-nil field of obj that implements Config
// and stops at the first error.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	for _, section := range nestedSections(obj) {
		if err := section.Set(dataProviderFor(section, dp)); err != nil {
			return err
		}
	}
	return nil
}

func nestedSections(obj interface{}) []Config {
	val := reflect.ValueOf(obj).Elem()
	var sections []Config
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !val.Type().Field(i).IsExported() || (field.Kind() == reflect.Ptr && field.IsNil()) {
			continue
		}
		if section, ok := field.Interface().(Config); ok {
			sections = append(sections, section)
		}
	}
	return sections
}

func dataProviderFor(section Config, dp DataProvider) DataProvider {
	if kp, ok := section.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return dp.WithKeyPrefix(kp.KeyPrefix())
	}
	return dp
}
