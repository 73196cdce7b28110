package item

import "time"

// Mode is the export annotation carried by an item.
type Mode string

// Recognised export modes, as written in the items configuration.
const (
	// ModeChange writes the item's value on every change.
	ModeChange Mode = "true"

	// ModeInit behaves like ModeChange and additionally writes the
	// item's current value once at startup; the last stored backend
	// value is also restored onto the bus.
	ModeInit Mode = "init"
)

// Valid reports whether m is a recognised export mode.
func (m Mode) Valid() bool {
	return m == ModeChange || m == ModeInit
}

// Item is a single home-automation item exported to InfluxDB.
type Item struct {
	// Name is the item identifier, e.g. "living.temperature".
	Name string

	// Mode controls startup behavior, see Mode constants.
	Mode Mode

	// CreatedAt is when the item was first registered.
	CreatedAt time.Time

	// LastValue is the most recently enqueued value, nil before the
	// first enqueue of this process or checkpoint of a previous one.
	LastValue *float64

	// LastEnqueuedAt is when LastValue was enqueued.
	LastEnqueuedAt *time.Time
}
