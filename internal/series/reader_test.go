package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/influxdb"
)

type fakeQuerier struct {
	rows []influxdb.Row
	err  error

	// captured arguments from the last call
	item   string
	start  time.Time
	end    time.Time
	window time.Duration
	fn     string
}

func (q *fakeQuerier) QueryWindow(_ context.Context, item string, start, end time.Time, window time.Duration, fn string) ([]influxdb.Row, error) {
	q.item, q.start, q.end, q.window, q.fn = item, start, end, window, fn
	return q.rows, q.err
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func newTestReader(q *fakeQuerier) *Reader {
	r := New(q, nil)
	r.now = fixedNow
	return r
}

func TestReader_Read(t *testing.T) {
	now := fixedNow()
	q := &fakeQuerier{rows: []influxdb.Row{
		{Time: now.Add(-2 * time.Hour), Value: 20.5},
		{Time: now.Add(-time.Hour), Value: 21},
	}}
	r := newTestReader(q)

	reply, err := r.Read(context.Background(), Request{
		Item:  "living.temperature",
		Func:  "avg",
		Start: "1d",
		End:   "now",
	})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if reply.Cmd != "series" {
		t.Errorf("Cmd = %q, want %q", reply.Cmd, "series")
	}
	if len(reply.Series) != 2 {
		t.Fatalf("len(Series) = %d, want 2", len(reply.Series))
	}
	wantFirst := [2]float64{float64(now.Add(-2 * time.Hour).UnixMilli()), 20.5}
	if reply.Series[0] != wantFirst {
		t.Errorf("Series[0] = %v, want %v", reply.Series[0], wantFirst)
	}

	// One-day span aggregates at five minutes.
	if q.window != 5*time.Minute {
		t.Errorf("window = %v, want %v", q.window, 5*time.Minute)
	}
	if q.fn != influxdb.AggMean {
		t.Errorf("fn = %q, want %q", q.fn, influxdb.AggMean)
	}
	if !q.start.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("start = %v, want %v", q.start, now.Add(-24*time.Hour))
	}
	if !q.end.Equal(now) {
		t.Errorf("end = %v, want %v", q.end, now)
	}

	wantSID := "living.temperature|avg|1d|now"
	if reply.SID != wantSID {
		t.Errorf("SID = %q, want %q", reply.SID, wantSID)
	}
	if reply.Params.Step != (5 * time.Minute).Milliseconds() {
		t.Errorf("Params.Step = %d, want %d", reply.Params.Step, (5 * time.Minute).Milliseconds())
	}
}

func TestReader_ReadDefaults(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestReader(q)

	reply, err := r.Read(context.Background(), Request{Item: "hall.motion", Start: "2h"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	// Empty func defaults to avg, empty end to now.
	if q.fn != influxdb.AggMean {
		t.Errorf("fn = %q, want %q", q.fn, influxdb.AggMean)
	}
	if !q.end.Equal(fixedNow()) {
		t.Errorf("end = %v, want %v", q.end, fixedNow())
	}
	if reply.Params.Func != "avg" {
		t.Errorf("Params.Func = %q, want %q", reply.Params.Func, "avg")
	}
	if reply.Series == nil {
		t.Error("Series is nil, want empty slice for no rows")
	}
}

func TestReader_ReadKeepsClientSID(t *testing.T) {
	r := newTestReader(&fakeQuerier{})

	reply, err := r.Read(context.Background(), Request{
		Item:  "hall.motion",
		Start: "1h",
		SID:   "client-sid-42",
	})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reply.SID != "client-sid-42" {
		t.Errorf("SID = %q, want %q", reply.SID, "client-sid-42")
	}
}

func TestReader_ReadExplicitStep(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestReader(q)

	if _, err := r.Read(context.Background(), Request{Item: "a", Start: "1d", Step: "60"}); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if q.window != time.Minute {
		t.Errorf("window = %v, want %v", q.window, time.Minute)
	}
}

func TestReader_ReadOnMapsToMax(t *testing.T) {
	q := &fakeQuerier{}
	r := newTestReader(q)

	if _, err := r.Read(context.Background(), Request{Item: "hall.motion", Func: "on", Start: "1h"}); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if q.fn != influxdb.AggMax {
		t.Errorf("fn = %q, want %q", q.fn, influxdb.AggMax)
	}
}

func TestReader_ReadInvalidRequests(t *testing.T) {
	r := newTestReader(&fakeQuerier{})

	tests := []struct {
		name string
		req  Request
	}{
		{"missing item", Request{Start: "1h"}},
		{"unknown func", Request{Item: "a", Func: "median", Start: "1h"}},
		{"bad start", Request{Item: "a", Start: "yesterday"}},
		{"bad end", Request{Item: "a", Start: "1h", End: "tomorrow"}},
		{"bad step", Request{Item: "a", Start: "1h", Step: "fast"}},
		{"zero step", Request{Item: "a", Start: "1h", Step: "0"}},
		{"start after end", Request{Item: "a", Start: "now", End: "1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Read(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Read() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestReader_ReadPropagatesQueryError(t *testing.T) {
	q := &fakeQuerier{err: influxdb.ErrQueryFailed}
	r := newTestReader(q)

	_, err := r.Read(context.Background(), Request{Item: "a", Start: "1h"})
	if !errors.Is(err, influxdb.ErrQueryFailed) {
		t.Errorf("Read() error = %v, want ErrQueryFailed", err)
	}
	if errors.Is(err, ErrInvalidRequest) {
		t.Error("backend failure must not look like a client error")
	}
}
