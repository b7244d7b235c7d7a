package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes as a string such as "10s"
// in the config file. Plain numbers are accepted as nanoseconds so files
// written before the string form still load.
type Duration struct {
	time.Duration
}

// MarshalJSON writes the duration in time.Duration.String form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1m30s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(value)
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}
