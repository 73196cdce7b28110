// Package series answers time-series queries from the visualization
// frontend.
//
// It parses smartVISU-style time expressions ("now", "1d", unix
// seconds), picks an aggregation window sized to the requested span,
// queries InfluxDB, and shapes the reply in the smartVISU series
// protocol used over both HTTP and WebSocket.
package series
