package util

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ParsableDuration is a custom type to provide time.Duration unmarshalling.
type ParsableDuration time.Duration

// UnmarshalYAML unmarshal's a YAML duration string ("10s", "1m30s") into a
// time.Duration.  Bare ints are not supported.
func (d *ParsableDuration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = ParsableDuration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d ParsableDuration) Duration() time.Duration {
	return time.Duration(d)
}
