package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aakso/smarthome-influxdb/internal/series"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The read surface carries no credentials, any origin may chart it.
		return true
	},
}

// wsRequest is one command from a smartVISU frontend.
//
// The protocol puts the aggregation function in the "series" field;
// "func" is accepted as an alias for HTTP-style clients.
type wsRequest struct {
	Cmd    string `json:"cmd"`
	Item   string `json:"item"`
	Series string `json:"series"`
	Func   string `json:"func"`
	Start  string `json:"start"`
	End    string `json:"end"`
	SID    string `json:"sid"`
}

// wsError is sent back for malformed or failed commands.
type wsError struct {
	Cmd   string `json:"cmd"`
	Error string `json:"error"`
	SID   string `json:"sid,omitempty"`
}

// hub tracks open WebSocket connections so Close() can drop them.
type hub struct {
	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*wsConn]struct{})}
}

func (h *hub) add(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// closeAll disconnects every client so their read loops exit.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.conn.Close()
		delete(h.conns, c)
	}
}

// wsConn serialises writes to one connection. The read loop and the
// ping ticker both write, so every write goes through the mutex.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	//nolint:errcheck // Best-effort deadline; write error caught below
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	//nolint:errcheck // Best-effort deadline; write error caught below
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleWebSocket upgrades the connection and serves series commands
// until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{conn: conn}
	s.hub.add(c)
	defer func() {
		s.hub.remove(c)
		conn.Close()
	}()

	s.logger.Debug("websocket client connected", "clients", s.hub.count())

	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	readWait := pingInterval + pongWait

	if s.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.pingLoop(c, pingInterval, pongWait, stop)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			} else {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		conn.SetReadDeadline(time.Now().Add(readWait))
		s.handleWSMessage(r.Context(), c, message, pongWait)
	}
}

// pingLoop keeps the connection alive until stop closes.
func (s *Server) pingLoop(c *wsConn, interval, timeout time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(timeout); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// handleWSMessage dispatches one client command.
func (s *Server) handleWSMessage(ctx context.Context, c *wsConn, data []byte, writeTimeout time.Duration) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		//nolint:errcheck // Client may already be gone
		c.writeJSON(wsError{Cmd: "error", Error: "invalid JSON message"}, writeTimeout)
		return
	}

	switch req.Cmd {
	case "series":
		s.handleWSSeries(ctx, c, req, writeTimeout)
	case "ping":
		//nolint:errcheck // Client may already be gone
		c.writeJSON(map[string]string{"cmd": "pong"}, writeTimeout)
	default:
		//nolint:errcheck // Client may already be gone
		c.writeJSON(wsError{Cmd: "error", Error: "unknown command: " + req.Cmd}, writeTimeout)
	}
}

// handleWSSeries runs one series query and writes the reply.
func (s *Server) handleWSSeries(ctx context.Context, c *wsConn, req wsRequest, writeTimeout time.Duration) {
	fn := req.Func
	if fn == "" {
		fn = req.Series
	}

	reply, err := s.reader.Read(ctx, series.Request{
		Item:  req.Item,
		Func:  fn,
		Start: req.Start,
		End:   req.End,
		SID:   req.SID,
	})
	if err != nil {
		s.logger.Warn("websocket series query failed", "item", req.Item, "error", err)
		//nolint:errcheck // Client may already be gone
		c.writeJSON(wsError{Cmd: "error", Error: err.Error(), SID: req.SID}, writeTimeout)
		return
	}

	//nolint:errcheck // Client may already be gone
	c.writeJSON(reply, writeTimeout)
}
