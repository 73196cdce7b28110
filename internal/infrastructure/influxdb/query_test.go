package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// seriesCSV is an annotated-CSV response in the shape the query API
// returns for an aggregated item series.
const seriesCSV = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string
#group,false,false,true,true,false,false,true,true
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement
,,0,2026-03-01T00:00:00Z,2026-03-01T01:00:00Z,2026-03-01T00:05:00Z,21.5,value,smarthome.living.temperature
,,0,2026-03-01T00:00:00Z,2026-03-01T01:00:00Z,2026-03-01T00:10:00Z,21.9,value,smarthome.living.temperature
,,0,2026-03-01T00:00:00Z,2026-03-01T01:00:00Z,2026-03-01T00:15:00Z,22.4,value,smarthome.living.temperature

`

// queryServer serves a canned CSV response and captures the Flux body.
func queryServer(t *testing.T, csv string) (*httptest.Server, *string) {
	t.Helper()
	var gotFlux string
	server := httptest.NewServer(pingHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v2/query") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotFlux = string(body)
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(csv))
	})))
	return server, &gotFlux
}

func TestQueryWindow(t *testing.T) {
	server, gotFlux := queryServer(t, seriesCSV)
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows, err := client.QueryWindow(context.Background(), "living.temperature", start, end, 5*time.Minute, AggMean)
	if err != nil {
		t.Fatalf("QueryWindow() error = %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Value != 21.5 {
		t.Errorf("rows[0].Value = %v, want 21.5", rows[0].Value)
	}
	wantTime := time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC)
	if !rows[0].Time.Equal(wantTime) {
		t.Errorf("rows[0].Time = %v, want %v", rows[0].Time, wantTime)
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Time.After(rows[i-1].Time) {
			t.Errorf("rows not in ascending time order at %d", i)
		}
	}

	// The query must target the item's measurement and the requested window.
	if !strings.Contains(*gotFlux, `smarthome.living.temperature`) {
		t.Errorf("flux missing measurement:\n%s", *gotFlux)
	}
	if !strings.Contains(*gotFlux, "aggregateWindow(every: 300s, fn: mean") {
		t.Errorf("flux missing aggregation:\n%s", *gotFlux)
	}
}

func TestQueryWindow_UnknownAggregation(t *testing.T) {
	server, _ := queryServer(t, seriesCSV)
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	start := time.Now().Add(-time.Hour)
	_, err = client.QueryWindow(context.Background(), "x", start, time.Now(), time.Minute, "median")
	if !errors.Is(err, ErrQueryFailed) {
		t.Errorf("QueryWindow() error = %v, want ErrQueryFailed", err)
	}
}

func TestQueryWindow_InvalidRange(t *testing.T) {
	server, _ := queryServer(t, seriesCSV)
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	now := time.Now()
	if _, err := client.QueryWindow(context.Background(), "x", now, now, time.Minute, AggMean); err == nil {
		t.Error("QueryWindow() with start == end should fail")
	}
	if _, err := client.QueryWindow(context.Background(), "x", now.Add(-time.Hour), now, 0, AggMean); err == nil {
		t.Error("QueryWindow() with zero window should fail")
	}
}

func TestQueryWindow_ServerError(t *testing.T) {
	server := httptest.NewServer(pingHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"compilation failed"}`))
	})))
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	start := time.Now().Add(-time.Hour)
	_, err = client.QueryWindow(context.Background(), "x", start, time.Now(), time.Minute, AggMean)
	if !errors.Is(err, ErrQueryFailed) {
		t.Errorf("QueryWindow() error = %v, want ErrQueryFailed", err)
	}
}

func TestLastValue(t *testing.T) {
	lastCSV := `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string
#group,false,false,true,true,false,false,true,true
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement
,,0,1970-01-01T00:00:00Z,2026-03-01T01:00:00Z,2026-03-01T00:55:00Z,19.25,value,smarthome.cellar.temperature

`
	server, gotFlux := queryServer(t, lastCSV)
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	row, err := client.LastValue(context.Background(), "cellar.temperature")
	if err != nil {
		t.Fatalf("LastValue() error = %v", err)
	}
	if row.Value != 19.25 {
		t.Errorf("row.Value = %v, want 19.25", row.Value)
	}
	if !strings.Contains(*gotFlux, "last()") {
		t.Errorf("flux missing last():\n%s", *gotFlux)
	}
}

func TestLastValue_Empty(t *testing.T) {
	server, _ := queryServer(t, "")
	defer server.Close()

	client, err := Connect(context.Background(), testServerConfig(t, server))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	_, err = client.LastValue(context.Background(), "nonexistent.item")
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("LastValue() error = %v, want ErrEmptyResult", err)
	}
}

func TestSanitizeItem(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"living.temperature", "living.temperature"},
		{`liv"ing`, "living"},
		{"liv\\ing", "living"},
		{"liv\ning", "living"},
	}
	for _, tt := range tests {
		if got := sanitizeItem(tt.input); got != tt.want {
			t.Errorf("sanitizeItem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
