package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the item bus namespace used when none is configured.
const DefaultTopicPrefix = "smarthome"

// Topics builds item bus topic names under a configurable prefix.
//
// The bus layout is flat:
//
//	{prefix}/items/{item}/state   current value, published by the framework
//	{prefix}/items/{item}/set     value restore, published by this bridge
//	{prefix}/system/{client}/status   online/offline status
//
// Item names may themselves contain dots ("living.temperature") but
// never slashes, so the item segment is unambiguous.
type Topics struct {
	Prefix string
}

// NewTopics creates a topic builder, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// ItemState returns the state topic for an item.
//
// Example: smarthome/items/living.temperature/state
func (t Topics) ItemState(item string) string {
	return fmt.Sprintf("%s/items/%s/state", t.Prefix, item)
}

// ItemSet returns the value-restore topic for an item.
//
// Example: smarthome/items/living.temperature/set
func (t Topics) ItemSet(item string) string {
	return fmt.Sprintf("%s/items/%s/set", t.Prefix, item)
}

// AllItemStates returns the wildcard subscription covering every
// item's state topic.
func (t Topics) AllItemStates() string {
	return fmt.Sprintf("%s/items/+/state", t.Prefix)
}

// SystemStatus returns the status topic for a client.
//
// Example: smarthome/system/smarthome-influxdb/status
func (t Topics) SystemStatus(clientID string) string {
	return fmt.Sprintf("%s/system/%s/status", t.Prefix, clientID)
}

// ItemFromStateTopic extracts the item name from a state topic.
// Returns false if the topic is not a state topic under this prefix.
func (t Topics) ItemFromStateTopic(topic string) (string, bool) {
	prefix := t.Prefix + "/items/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(topic, prefix)
	item, ok := strings.CutSuffix(rest, "/state")
	if !ok || item == "" || strings.Contains(item, "/") {
		return "", false
	}
	return item, true
}
