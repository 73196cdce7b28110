package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// statePayload is the JSON shape published on item state topics.
//
//	{"value": 21.5}
//	{"value": true, "ts": 1756600000.25}
//
// The framework may also publish a bare scalar ("21.5", "true") for
// items bridged from older plugins.
type statePayload struct {
	Value json.RawMessage `json:"value"`
	TS    *float64        `json:"ts,omitempty"`
}

// parsePayload decodes an item state payload into a numeric value and
// timestamp. Booleans map to 0/1 so switch states land in the same
// series as sensors. The timestamp is unix seconds with optional
// fraction; when absent the receive time is used.
func parsePayload(raw []byte, received time.Time) (float64, time.Time, error) {
	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Value != nil {
		value, convErr := toNumeric(payload.Value)
		if convErr != nil {
			return 0, time.Time{}, convErr
		}
		ts := received
		if payload.TS != nil {
			ts = unixFloat(*payload.TS)
		}
		return value, ts, nil
	}

	// Bare scalar fallback
	value, err := toNumeric(raw)
	if err != nil {
		return 0, time.Time{}, err
	}
	return value, received, nil
}

// toNumeric converts a JSON scalar to float64.
// Numbers pass through, booleans become 0/1, numeric strings are parsed.
func toNumeric(raw json.RawMessage) (float64, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("unparseable value %q: %w", string(raw), err)
	}

	switch t := v.(type) {
	case float64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric value %q", string(raw))
	}
}

// unixFloat converts unix seconds with fraction to a time.Time.
func unixFloat(sec float64) time.Time {
	whole := int64(sec)
	frac := sec - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second))).UTC()
}

// formatValue renders a numeric value for a restore publish.
// Integral values are rendered without a decimal point so switch
// items receive "1", not "1.000000".
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
