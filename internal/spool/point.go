package spool

import "time"

// Point is a single pending measurement for an item.
//
// Points are immutable once enqueued: the queue and flusher pass them
// by value and never modify them in place.
type Point struct {
	// Item is the item identifier (e.g., "living.temperature").
	// The backend measurement name is derived from it.
	Item string

	// Value is the recorded value. Booleans are mapped to 0/1 and
	// integers widened to float before a point is created.
	Value float64

	// Time is the moment the value was observed, not when it is written.
	Time time.Time

	// Tags are optional low-cardinality labels attached to the write.
	Tags map[string]string
}
