package api

import (
	"net/http"
	"time"
)

// itemInfo is one registered item in the list response.
type itemInfo struct {
	Name           string     `json:"name"`
	Mode           string     `json:"mode"`
	LastValue      *float64   `json:"last_value,omitempty"`
	LastEnqueuedAt *time.Time `json:"last_enqueued_at,omitempty"`
}

// queueStats summarises the write queue for monitoring.
type queueStats struct {
	Length              int    `json:"length"`
	Capacity            int    `json:"capacity"`
	Dropped             uint64 `json:"dropped"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`
}

// handleListItems answers GET /api/v1/items with the registered items
// and write queue statistics.
func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	items := s.registry.All()

	infos := make([]itemInfo, 0, len(items))
	for _, it := range items {
		infos = append(infos, itemInfo{
			Name:           it.Name,
			Mode:           string(it.Mode),
			LastValue:      it.LastValue,
			LastEnqueuedAt: it.LastEnqueuedAt,
		})
	}

	stats := queueStats{
		Length:   s.queue.Len(),
		Capacity: s.queue.Cap(),
		Dropped:  s.queue.Dropped(),
	}
	if s.flusher != nil {
		stats.ConsecutiveFailures = s.flusher.ConsecutiveFailures()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": infos,
		"queue": stats,
	})
}
