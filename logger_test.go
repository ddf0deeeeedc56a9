package synckv

import (
	"sync"
	"testing"
)

type recordLogger struct {
	mu   sync.Mutex
	msgs []string
	last Fields
}

func (r *recordLogger) rec(msg string, f Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.last = f
}

func (r *recordLogger) Debug(msg string, f Fields) { r.rec(msg, f) }
func (r *recordLogger) Info(msg string, f Fields)  { r.rec(msg, f) }
func (r *recordLogger) Warn(msg string, f Fields)  { r.rec(msg, f) }
func (r *recordLogger) Error(msg string, f Fields) { r.rec(msg, f) }

func TestScopedLoggerStampsCache(t *testing.T) {
	rec := &recordLogger{}
	l := newScopedLogger(rec, "prefs", "memory")

	in := Fields{"key": "a", "name": "override"}
	l.Warn("background write failed", in)

	if rec.last["kind"] != "memory" || rec.last["key"] != "a" {
		t.Fatalf("fields: %v", rec.last)
	}
	if rec.last["name"] != "override" {
		t.Fatalf("call-site field should win, got %v", rec.last["name"])
	}
	if len(in) != 2 {
		t.Fatalf("caller's Fields mutated: %v", in)
	}

	l.Debug("closing cache", nil)
	if rec.last["name"] != "prefs" {
		t.Fatalf("nil fields lost the scope: %v", rec.last)
	}
}

func TestNewLogsInitialLoad(t *testing.T) {
	rec := &recordLogger{}
	newTestCache(t, newFaultStore(), func(o *Options) { o.Logger = rec })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) < 2 || rec.msgs[len(rec.msgs)-1] != "initial load completed" {
		t.Fatalf("messages: %v", rec.msgs)
	}
	if rec.last["name"] != testName || rec.last["kind"] != "fault" {
		t.Fatalf("scope fields: %v", rec.last)
	}
}
