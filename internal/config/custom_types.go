package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlexBool is a boolean that can be written in YAML as a bool, a string
// ("true", "yes", "on", ...) or a number.
type FlexBool bool

// Bool returns the plain boolean value.
func (fb FlexBool) Bool() bool { return bool(fb) }

// UnmarshalYAML implements the yaml.Unmarshaler interface for FlexBool.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
	case "!!str":
		b, err := parseFlexString(value.Value)
		if err != nil {
			return err
		}
		*fb = FlexBool(b)
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return fmt.Errorf("cannot unmarshal %q into FlexBool: %w", value.Value, err)
		}
		*fb = FlexBool(f != 0)
	case "!!null":
		*fb = false
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexBool", value.Tag)
	}
	return nil
}

// MarshalYAML writes FlexBool back as a plain YAML bool.
func (fb FlexBool) MarshalYAML() (interface{}, error) {
	return bool(fb), nil
}

func parseFlexString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on", "enabled":
		return true, nil
	case "no", "n", "off", "disabled", "":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("cannot unmarshal string %q into FlexBool", s)
	}
	return b, nil
}
