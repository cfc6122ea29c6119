package parser

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/atikulmunna/lognorm/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuiltinFormats(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		format model.Format
		level  string
		msg    string
	}{
		{
			name:   "klog error",
			line:   "E0714 23:11:19.386396       1 pd_failover.go:70] PD failover replicas (0) reaches the limit (0), skip failover",
			format: model.FormatKlog,
			level:  "error",
			msg:    "PD failover replicas (0) reaches the limit (0), skip failover",
		},
		{
			name:   "klog info with leading whitespace",
			line:   "  I0101 00:00:00.000001 42 main.go:9] started   ",
			format: model.FormatKlog,
			level:  "info",
			msg:    "started",
		},
		{
			name:   "klog warn",
			line:   "W1231 12:30:45.123456    7 controller.go:115] requeue",
			format: model.FormatKlog,
			level:  "warn",
			msg:    "requeue",
		},
		{
			name:   "klog fatal",
			line:   "F0714 23:11:19.386396       1 main.go:1] boom",
			format: model.FormatKlog,
			level:  "fatal",
			msg:    "boom",
		},
		{
			name:   "logr iso timestamp",
			line:   "2024-03-05T10:07:17.123Z\tERROR\tGrafanaReconciler\treconciler error in stage",
			format: model.FormatLogr,
			level:  "error",
			msg:    "reconciler error in stage",
		},
		{
			name:   "logr epoch timestamp",
			line:   `1.6599427639039357e+09	INFO	controllers.CassandraDatacenter	Reconcile loop completed	{"loopID": "be41"}`,
			format: model.FormatLogrEpoch,
			level:  "info",
			msg:    `Reconcile loop completed	{"loopID": "be41"}`,
		},
		{
			name:   "logrus with src",
			line:   `time="2022-08-08T03:21:28Z" level=debug msg="Sentinel is not monitoring the correct master, changing..." src="checker.go:175"`,
			format: model.FormatLogrus,
			level:  "debug",
			msg:    "Sentinel is not monitoring the correct master, changing...",
		},
		{
			name:   "logrus with extra pairs",
			line:   `time="2022-08-08T03:21:56Z" level=info msg="deployment updated" deployment=rfs-test-cluster namespace=acto-namespace service=k8s.deployment src="deployment.go:102"`,
			format: model.FormatLogrus,
			level:  "info",
			msg:    "deployment updated",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, format, err := p.Parse(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != tt.format {
				t.Errorf("expected format %v, got %v", tt.format, format)
			}
			if rec[model.KeyLevel] != tt.level {
				t.Errorf("expected level %q, got %v", tt.level, rec[model.KeyLevel])
			}
			if rec[model.KeyMessage] != tt.msg {
				t.Errorf("expected msg %q, got %q", tt.msg, rec[model.KeyMessage])
			}
			if len(rec) != 2 {
				t.Errorf("expected only level and msg, got %v", rec)
			}
		})
	}
}

func TestKlogUnmappedLetter(t *testing.T) {
	rec, format, err := New().Parse("D0714 23:11:19.386396       1 pd_failover.go:70] debug detail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != model.FormatKlog {
		t.Errorf("expected klog, got %v", format)
	}
	if _, ok := rec[model.KeyLevel]; ok {
		t.Errorf("expected no level key, got %v", rec)
	}
	if rec[model.KeyMessage] != "debug detail" {
		t.Errorf("expected msg 'debug detail', got %q", rec[model.KeyMessage])
	}
}

func TestLogrBeatsLogrAlt(t *testing.T) {
	// Both logr and logr-alt accept this shape; the earlier link must win.
	line := "2024-03-05T10:07:17.000Z WARN reconciler slow"

	alt := Builtin()[4]
	if _, ok := alt.Recognize(line); !ok {
		t.Fatalf("expected logr-alt to accept the line on its own")
	}

	rec, format, err := New().Parse(line)
	if err != nil {
		t.Fatal(err)
	}
	if format != model.FormatLogr {
		t.Errorf("expected logr to win, got %v", format)
	}
	if rec[model.KeyLevel] != "warn" || rec[model.KeyMessage] != "slow" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestBuiltinOrder(t *testing.T) {
	want := []string{"klog", "logr", "logr-epoch", "logrus", "logr-alt"}
	got := New().Recognizers()
	if len(got) != len(want) {
		t.Fatalf("expected %d recognizers, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], r.Name())
		}
	}
}

func TestLogrusEscapedQuote(t *testing.T) {
	line := `time="2022-08-08T03:21:28Z" level=info msg="He said \"hi\"" src="main.go:12"`
	rec := New().Classify(line, nil)
	if rec[model.KeyMessage] != `He said \"hi\"` {
		t.Errorf("expected escaped quotes kept verbatim, got %q", rec[model.KeyMessage])
	}
}

func TestJSONFallback(t *testing.T) {
	tests := []struct {
		name string
		line string
		want model.Record
	}{
		{
			name: "severity renamed and lowercased",
			line: `{"severity":"ERROR","msg":"x"}`,
			want: model.Record{"level": "error", "msg": "x"},
		},
		{
			name: "level lowercased",
			line: `{"level":"Info","msg":"y"}`,
			want: model.Record{"level": "info", "msg": "y"},
		},
		{
			name: "level wins over severity",
			line: `{"level":"WARN","severity":"ERROR"}`,
			want: model.Record{"level": "warn", "severity": "ERROR"},
		},
		{
			name: "neither level nor severity",
			line: `{"msg":"no level here"}`,
			want: model.Record{"msg": "no level here"},
		},
		{
			name: "non-string level kept",
			line: `{"level":30,"msg":"pino"}`,
			want: model.Record{"level": json.Number("30"), "msg": "pino"},
		},
		{
			name: "extra keys preserved",
			line: ` {"level":"error","ts":1655678404.9488907,"logger":"controller-runtime","ok":true,"gone":null,"ctx":{"a": [1, 2]}} `,
			want: model.Record{
				"level":  "error",
				"ts":     json.Number("1655678404.9488907"),
				"logger": "controller-runtime",
				"ok":     true,
				"gone":   nil,
				"ctx":    map[string]any{"a": []any{json.Number("1"), json.Number("2")}},
			},
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, format, err := p.Parse(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != model.FormatJSON {
				t.Errorf("expected json format, got %v", format)
			}
			if !reflect.DeepEqual(rec, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, rec)
			}
		})
	}
}

func TestUnparseable(t *testing.T) {
	for _, line := range []string{"not a log line", "", `{"level":`, `["level","error"]`, `"error"`, "42", `{"a":1} trailing`,
		"{\"msg\":\"tab\there\"}", `{"msg":"bad \x"}`, "{\"msg\":\"nl\nhere\"}"} {
		rec, format, err := New().Parse(line)
		if err == nil {
			t.Errorf("%q: expected error", line)
			continue
		}
		if !errors.Is(err, ErrUnrecognized) {
			t.Errorf("%q: expected ErrUnrecognized, got %v", line, err)
		}
		var ue *UnrecognizedError
		if !errors.As(err, &ue) || ue.Line != line {
			t.Errorf("%q: expected *UnrecognizedError carrying the line, got %v", line, err)
		}
		if !rec.Empty() || format != model.FormatUnknown {
			t.Errorf("%q: expected empty record and unknown format, got %v %v", line, rec, format)
		}
	}
}

func TestClassifyDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := zap.New(core).Sugar()

	rec := Classify("not a log line", sink)
	if len(rec) != 0 {
		t.Errorf("expected {}, got %v", rec)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", entry.Level)
	}
	if entry.Message != "cannot parse line" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if entry.ContextMap()["line"] != "not a log line" {
		t.Errorf("expected offending line in context, got %v", entry.ContextMap())
	}

	// Successful lines stay silent.
	Classify(`{"level":"info"}`, sink)
	if logs.Len() != 1 {
		t.Errorf("expected no further diagnostics, got %d", logs.Len())
	}
}

func TestClassifyNilSink(t *testing.T) {
	if rec := Classify("garbage", nil); len(rec) != 0 {
		t.Errorf("expected {}, got %v", rec)
	}
}

func TestJSONIdempotent(t *testing.T) {
	lines := []string{
		`{"severity":"ERROR","msg":"x"}`,
		`{"level":"Info","msg":"y","n":1.50,"nested":{"k":"<v>"},"list":[true,null]}`,
	}
	p := New()
	for _, line := range lines {
		first := p.Classify(line, nil)
		b, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		second := p.Classify(string(b), nil)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected %#v after round trip, got %#v", first, second)
		}
	}
}

func TestPatternRecognizer(t *testing.T) {
	custom, err := NewPatternRecognizer("nginx-error", `^(?P<time>\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) \[(?P<level>\w+)\] (?P<pid>\d+)#\d+: (?P<message>.*)$`)
	if err != nil {
		t.Fatal(err)
	}
	p := New(WithRecognizers(custom))

	rec, format, err := p.Parse("2026/02/17 12:00:00 [ERROR] 1234#0: upstream timed out")
	if err != nil {
		t.Fatal(err)
	}
	if format != model.FormatCustom {
		t.Errorf("expected custom format, got %v", format)
	}
	want := model.Record{
		"level": "error",
		"msg":   "upstream timed out",
		"time":  "2026/02/17 12:00:00",
		"pid":   "1234",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("expected %v, got %v", want, rec)
	}

	// Built-ins still take priority.
	if _, format, _ := p.Parse("I0101 00:00:00.000001 1 a.go:1] hi"); format != model.FormatKlog {
		t.Errorf("expected klog ahead of custom, got %v", format)
	}
}

func TestPatternRecognizerInvalid(t *testing.T) {
	if _, err := NewPatternRecognizer("bad", `[invalid`); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestClassifyConcurrent(t *testing.T) {
	reg := New()
	want := make([]model.Record, len(benchLines))
	for i, line := range benchLines {
		want[i] = reg.Classify(line, nil)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				i := (g + n) % len(benchLines)
				got := reg.Classify(benchLines[i], nil)
				if !reflect.DeepEqual(got, want[i]) {
					errs <- benchLines[i]
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for line := range errs {
		t.Errorf("concurrent classify of %q diverged from sequential result", line)
	}
}
