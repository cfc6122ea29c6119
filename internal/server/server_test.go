package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/atikulmunna/lognorm/internal/hub"
	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/atikulmunna/lognorm/internal/parser"
	"github.com/gorilla/websocket"
)

type fixture struct {
	srv   *Server
	agg   *aggregator.Aggregator
	hub   *hub.Hub
	input chan model.RawLine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	input := make(chan model.RawLine, 10)
	reg := parser.New()
	h := hub.New(input, reg, nil)
	agg := aggregator.New(aggregator.Config{RunID: "run-test", Dropped: h.Dropped})
	return &fixture{srv: New(h, agg, reg, "127.0.0.1:0", nil), agg: agg, hub: h, input: input}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.srv.Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["run_id"] != "run-test" {
		t.Errorf("unexpected health body: %v", body)
	}

	f.agg.Record(model.Entry{Record: model.Record{"level": "error"}})
	rec = get(t, f.srv.Handler(), "/healthz")
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "failing" {
		t.Errorf("expected failing status, got %v", body["status"])
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.agg.Record(model.Entry{Format: model.FormatLogrus, Record: model.Record{"level": "info", "msg": "a"}})
	f.agg.Record(model.Entry{Record: model.Record{}})

	rec := get(t, f.srv.Handler(), "/api/stats")
	var stats aggregator.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalLines != 2 || stats.Unparseable != 1 || stats.LevelCounts["info"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFormats(t *testing.T) {
	f := newFixture(t)
	rec := get(t, f.srv.Handler(), "/api/formats")

	var formats []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &formats); err != nil {
		t.Fatal(err)
	}
	if len(formats) != 5 || formats[0].Name != "klog" {
		t.Errorf("expected built-in chain starting with klog, got %+v", formats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := get(t, f.srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in metrics output")
	}
}

func TestWebSocketStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.hub.Start(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?level=error"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	f.input <- model.RawLine{Text: `{"level":"info","msg":"skip me"}`, Source: "a.log", Line: 1}
	f.input <- model.RawLine{Text: `{"level":"error","msg":"boom"}`, Source: "a.log", Line: 2}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Line   int            `json:"line"`
		Format string         `json:"format"`
		Record map[string]any `json:"record"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Line != 2 || got.Record["msg"] != "boom" || got.Format != "json" {
		t.Errorf("expected only the error entry, got %+v", got)
	}
}
