// Package mqtt provides the item bus client for the bridge.
//
// The smarthome framework publishes item state changes to MQTT and the
// bridge subscribes to them, so this package wraps paho.mqtt.golang
// with connection management, automatic re-subscription on reconnect,
// panic-safe message handlers, and Last Will and Testament so the
// framework can detect a crashed bridge.
//
// Topic layout is built by the Topics type under a configurable prefix:
//
//	{prefix}/items/{item}/state       item values from the framework
//	{prefix}/items/{item}/set         value restores from the bridge
//	{prefix}/system/{client}/status   bridge online/offline status
package mqtt
