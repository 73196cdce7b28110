package series

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unixThreshold separates unix timestamps from relative offsets when
// an expression is a bare number. Anything at or above this is read
// as unix seconds (2001-09-09 onwards), anything below as an offset.
const unixThreshold = 1e9

// ParseTime resolves a frontend time expression against a reference
// instant.
//
// Accepted forms:
//   - "now" (or empty): the reference instant
//   - unix seconds: "1756600000"
//   - relative offset with unit: "1h", "2d", "-30m", "1y"
//
// Offsets without an explicit "+" reach into the past, so "1d" is one
// day ago, matching how the frontend asks for "the last day". A bare
// small number has no unit and is taken as hours; defaulted reports
// true in that case so the caller can log a warning.
func ParseTime(expr string, now time.Time) (t time.Time, defaulted bool, err error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	if expr == "" || expr == "now" {
		return now, false, nil
	}

	if f, perr := strconv.ParseFloat(expr, 64); perr == nil {
		if f >= unixThreshold {
			sec := int64(f)
			nsec := int64((f - float64(sec)) * float64(time.Second))
			return time.Unix(sec, nsec).UTC(), false, nil
		}
		return offsetFrom(now, expr, f, time.Hour), true, nil
	}

	unit := expr[len(expr)-1]
	num := expr[:len(expr)-1]
	f, perr := strconv.ParseFloat(num, 64)
	if perr != nil {
		return time.Time{}, false, fmt.Errorf("invalid time expression %q", expr)
	}

	var scale time.Duration
	switch unit {
	case 'm':
		scale = time.Minute
	case 'h':
		scale = time.Hour
	case 'd':
		scale = 24 * time.Hour
	case 'y':
		scale = 365 * 24 * time.Hour
	default:
		return time.Time{}, false, fmt.Errorf("invalid time unit %q in %q", string(unit), expr)
	}

	return offsetFrom(now, expr, f, scale), false, nil
}

// offsetFrom applies a signed offset to now. The sign convention comes
// from the raw expression: a leading "+" moves forward, anything else
// moves back.
func offsetFrom(now time.Time, expr string, magnitude float64, scale time.Duration) time.Time {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	d := time.Duration(magnitude * float64(scale))
	if strings.HasPrefix(expr, "+") {
		return now.Add(d)
	}
	return now.Add(-d)
}

// Resolution picks the aggregation window for a query span so replies
// stay small enough for the frontend to chart.
func Resolution(span time.Duration) time.Duration {
	switch {
	case span <= 24*time.Hour:
		return 5 * time.Minute
	case span <= 7*24*time.Hour:
		return time.Hour
	default:
		return 12 * time.Hour
	}
}
