package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Interview services differ on timestamp precision and zone; zone-less values are
// taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as zone-less ISO 8601 ones.
func (iv *Interview) UnmarshalJSON(data []byte) error {
	type plain Interview
	aux := struct {
		*plain
		CreatedAt   string `json:"created_at"`
		StartedAt   string `json:"started_at"`
		CompletedAt string `json:"completed_at"`
	}{plain: (*plain)(iv)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.CreatedAt != "" {
		if iv.CreatedAt, err = parseTime(aux.CreatedAt); err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
	}
	if iv.StartedAt, err = parseOptionalTime(aux.StartedAt); err != nil {
		return fmt.Errorf("started_at: %w", err)
	}
	if iv.CompletedAt, err = parseOptionalTime(aux.CompletedAt); err != nil {
		return fmt.Errorf("completed_at: %w", err)
	}
	return nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
