package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date accepts either an RFC 3339 timestamp or a plain YYYY-MM-DD day.
type Date struct{ time.Time }

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// UnmarshalJSON leaves d zero for null or "". Anything else that is not a
// date fails with a dueDate validation error.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError(map[string]string{"dueDate": "dueDate must be a date string"})
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return NewValidationError(map[string]string{"dueDate": "dueDate must be YYYY-MM-DD or an RFC 3339 timestamp"})
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}
