package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02",
}

// OptionalDate is a date field in a request body. Set is true when the key
// was present, even if its value was null or empty.
type OptionalDate struct {
	Set  bool
	Time *time.Time
}

// UnmarshalJSON accepts an RFC 3339 timestamp, a datetime-local value, a
// plain date, an empty string or null.
func (d *OptionalDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	d.Time = nil
	if string(data) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			d.Time = &t
			return nil
		}
	}
	return fmt.Errorf("invalid dueDate %q", raw)
}
