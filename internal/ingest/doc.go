// Package ingest consumes item state messages from the MQTT bus and
// feeds the write queue.
//
// It filters the shared bus down to the configured items, normalises
// payloads to float64 (booleans become 0/1), restores init-mode items
// on startup from the last stored value, and runs the periodic
// collect cycle that keeps slow-moving series alive.
package ingest
