package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestWriteFailureRedactsKey(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{})
	h.WriteDone("put", "user:secret", errors.New("disk full"), 0)

	out := buf.String()
	if !strings.Contains(out, "synckv.write_failed") || !strings.Contains(out, "disk full") {
		t.Fatalf("missing failure log: %s", out)
	}
	if strings.Contains(out, "user:secret") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, h.redact("user:secret")) {
		t.Fatalf("redacted key missing: %s", out)
	}
}

func TestWriteOKSampled(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{WriteOKEvery: 3, Redact: func(s string) string { return s }})
	for i := 0; i < 9; i++ {
		h.WriteDone("put", "k", nil, 0)
	}
	if got := strings.Count(buf.String(), "synckv.write_ok"); got != 3 {
		t.Fatalf("sampled %d write_ok lines, want 3", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.LoadFailed("db", errors.New("x"))
	h.WriteDone("delete", "k", errors.New("x"), 0)
	h.Reconciled("k", "updated")
}
