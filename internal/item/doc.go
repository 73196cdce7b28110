// Package item manages the registry of exported items.
//
// An item is the home-automation framework's unit of state (a sensor
// or actuator value). Items are declared in config.yaml with an export
// mode ("true" or "init"); at startup the declaration is synced into a
// SQLite table and cached in memory for the bus delivery path.
//
// The SQLite copy exists for observability: the HTTP API reports the
// registry together with last-value statistics that survive restarts.
package item
