// Package configbinder decodes loosely typed configuration sections into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Bind decodes a section (usually a map[string]interface{} produced by the YAML loader)
// into target, which must be a pointer to a struct carrying `yaml` tags.
// Strings are converted to numbers, booleans and time.Duration values when needed.
func Bind(section interface{}, target interface{}) error {
	if section == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(section); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind section to %s: %w", targetType.Name(), err)
	}
	return nil
}

// BindNamed decodes every entry of a named-section map (for example all configured database
// connections) into a map of typed values.
func BindNamed[T any](sections map[string]interface{}) (map[string]T, error) {
	out := make(map[string]T, len(sections))
	for name, raw := range sections {
		var v T
		if err := Bind(raw, &v); err != nil {
			return nil, fmt.Errorf("section '%s': %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
