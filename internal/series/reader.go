package series

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/influxdb"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/logging"
)

// ErrInvalidRequest marks client errors: unknown aggregation function,
// malformed time expression, missing item. The API layer maps it to
// HTTP 400.
var ErrInvalidRequest = errors.New("invalid series request")

// Querier is the backend read surface the reader needs.
type Querier interface {
	QueryWindow(ctx context.Context, item string, start, end time.Time, window time.Duration, fn string) ([]influxdb.Row, error)
}

// Request is one series query from the frontend.
type Request struct {
	Item  string
	Func  string // avg (default), min, max, on
	Start string // time expression, required
	End   string // time expression, defaults to now
	Step  string // aggregation window in seconds, auto-selected when empty
	SID   string // client series id, derived when empty
}

// Params echoes the resolved query back to the client so it can
// schedule the follow-up request.
type Params struct {
	SID   string `json:"sid"`
	Item  string `json:"item"`
	Func  string `json:"func"`
	Start int64  `json:"start"` // unix ms
	End   int64  `json:"end"`   // unix ms
	Step  int64  `json:"step"`  // ms
}

// Reply is the smartVISU series message.
type Reply struct {
	Cmd    string       `json:"cmd"`
	Series [][2]float64 `json:"series"`
	SID    string       `json:"sid"`
	Params Params       `json:"params"`
	Update string       `json:"update"` // RFC3339, when to re-request
}

// Reader answers series queries. Stateless apart from its backend
// handle, so one instance serves all connections.
type Reader struct {
	querier Querier
	log     *logging.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a series reader.
func New(querier Querier, log *logging.Logger) *Reader {
	if log == nil {
		log = logging.Default()
	}
	return &Reader{
		querier: querier,
		log:     log.With("component", "series"),
		now:     time.Now,
	}
}

// Read resolves the request's time range and aggregation, queries the
// backend, and shapes the reply. Empty results yield an empty series,
// not an error; backend failures are returned as-is.
func (r *Reader) Read(ctx context.Context, req Request) (*Reply, error) {
	if req.Item == "" {
		return nil, fmt.Errorf("%w: item is required", ErrInvalidRequest)
	}

	fn, err := mapFunc(req.Func)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()

	start, defaulted, err := ParseTime(req.Start, now)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}
	if defaulted {
		r.log.Warn("time expression without unit, assuming hours",
			"item", req.Item,
			"start", req.Start,
		)
	}

	end, defaulted, err := ParseTime(req.End, now)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
	}
	if defaulted {
		r.log.Warn("time expression without unit, assuming hours",
			"item", req.Item,
			"end", req.End,
		)
	}

	if !end.After(start) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRequest, start, end)
	}

	step := Resolution(end.Sub(start))
	if req.Step != "" {
		sec, perr := strconv.Atoi(req.Step)
		if perr != nil || sec <= 0 {
			return nil, fmt.Errorf("%w: step must be a positive number of seconds, got %q", ErrInvalidRequest, req.Step)
		}
		step = time.Duration(sec) * time.Second
	}

	rows, err := r.querier.QueryWindow(ctx, req.Item, start, end, step, fn)
	if err != nil {
		return nil, fmt.Errorf("series query for %s: %w", req.Item, err)
	}

	pairs := make([][2]float64, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, [2]float64{float64(row.Time.UnixMilli()), row.Value})
	}

	sid := req.SID
	if sid == "" {
		sid = fmt.Sprintf("%s|%s|%s|%s", req.Item, normalizeFunc(req.Func), req.Start, req.End)
	}

	return &Reply{
		Cmd:    "series",
		Series: pairs,
		SID:    sid,
		Params: Params{
			SID:   sid,
			Item:  req.Item,
			Func:  normalizeFunc(req.Func),
			Start: start.UnixMilli(),
			End:   end.UnixMilli(),
			Step:  step.Milliseconds(),
		},
		Update: now.Add(step).Format(time.RFC3339),
	}, nil
}

// mapFunc translates frontend aggregation names to backend functions.
// "on" charts boolean items, where any activity in a bucket counts,
// so it maps to max.
func mapFunc(fn string) (string, error) {
	switch fn {
	case "", "avg":
		return influxdb.AggMean, nil
	case "min":
		return influxdb.AggMin, nil
	case "max", "on":
		return influxdb.AggMax, nil
	default:
		return "", fmt.Errorf("%w: unknown function %q", ErrInvalidRequest, fn)
	}
}

// normalizeFunc fills in the default aggregation name for echoes.
func normalizeFunc(fn string) string {
	if fn == "" {
		return "avg"
	}
	return fn
}
