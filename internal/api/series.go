package api

import (
	"errors"
	"net/http"

	"github.com/aakso/smarthome-influxdb/internal/series"
)

// handleSeries answers GET /api/v1/series.
//
// Query parameters: item (required), func, start, end, step, sid. Time
// expressions follow the frontend convention ("now", "1d", unix
// seconds). The reply is the same series message the WebSocket
// endpoint produces.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := series.Request{
		Item:  q.Get("item"),
		Func:  q.Get("func"),
		Start: q.Get("start"),
		End:   q.Get("end"),
		Step:  q.Get("step"),
		SID:   q.Get("sid"),
	}

	reply, err := s.reader.Read(r.Context(), req)
	if err != nil {
		if errors.Is(err, series.ErrInvalidRequest) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("series query failed", "item", req.Item, "error", err)
		writeInternalError(w, "series query failed")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
