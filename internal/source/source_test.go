package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const sample = "I0101 00:00:00.000001 1 a.go:1] one\n\n{\"level\":\"error\"}\n"

func collect(t *testing.T, path string) []model.RawLine {
	t.Helper()
	var lines []model.RawLine
	err := ScanFile(context.Background(), path, func(l model.RawLine) error {
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}

func checkSample(t *testing.T, lines []model.RawLine, path string) {
	t.Helper()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Text != "I0101 00:00:00.000001 1 a.go:1] one" || lines[0].Line != 1 {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if lines[2].Text != `{"level":"error"}` || lines[2].Line != 3 {
		t.Errorf("unexpected last line %+v", lines[2])
	}
	if lines[0].Source != path {
		t.Errorf("expected source %q, got %q", path, lines[0].Source)
	}
}

func TestScanPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	checkSample(t, collect(t, path), path)
}

func TestScanGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(sample))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "app.log.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	checkSample(t, collect(t, path), path)
}

func TestScanZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	data := enc.EncodeAll([]byte(sample), nil)
	_ = enc.Close()

	path := filepath.Join(t.TempDir(), "app.log.zst")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	checkSample(t, collect(t, path), path)
}

func TestScanStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Scan(context.Background(), strings.NewReader("a\nb\nc\n"), "mem", func(model.RawLine) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected stop error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Scan(ctx, strings.NewReader("a\n"), "mem", func(model.RawLine) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.log", "nested/b.log", "nested/deep/c.log", "skip.txt"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Expand([]string{filepath.Join(dir, "**", "*.log"), filepath.Join(dir, "a.log")})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique files, got %v", got)
	}
	for _, p := range got {
		if !filepath.IsAbs(p) || filepath.Ext(p) != ".log" {
			t.Errorf("unexpected path %q", p)
		}
	}
}

func TestExpandLiteralFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app[1].log")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Expand([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != path {
		t.Errorf("expected existing file %q to be used as is, got %v", path, got)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.log")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
