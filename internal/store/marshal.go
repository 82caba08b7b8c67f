package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/deliver/internal/ir"
)

// marshalJSON encodes v as compact JSON TEXT with HTML escaping disabled,
// so stored text matches what canonical hashing sees.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// marshalNotifications converts notifications to JSON TEXT. nil becomes [].
func marshalNotifications(notes []ir.Notification) (string, error) {
	if notes == nil {
		notes = []ir.Notification{}
	}
	data, err := marshalJSON(notes)
	if err != nil {
		return "", fmt.Errorf("marshal notifications: %w", err)
	}
	return data, nil
}

func unmarshalNotifications(data string) ([]ir.Notification, error) {
	notes := []ir.Notification{}
	if data == "" {
		return notes, nil
	}
	if err := json.Unmarshal([]byte(data), &notes); err != nil {
		return nil, fmt.Errorf("unmarshal notifications: %w", err)
	}
	return notes, nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := marshalJSON(values)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return data, nil
}

func unmarshalStrings(data string) ([]string, error) {
	var values []string
	if data == "" || data == "[]" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return values, nil
}

// deliverySettings is the persisted settings column of a delivery.
type deliverySettings struct {
	Item *ir.ItemDeliverySettings `json:"item,omitempty"`
	Test *ir.TestDeliverySettings `json:"test,omitempty"`
}

// result is the persisted result column of an assessment result.
type result struct {
	ItemResults map[string]ir.IRObject `json:"item_results"`
	Outcomes    ir.IRObject            `json:"outcomes"`
}

// Timestamps are stored as unix milliseconds in UTC.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
