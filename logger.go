package synckv

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Adapters for zap, logrus and slog live
// under log/. If Logger is nil in Options, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// scopedLogger stamps every record with the partition name and store kind,
// so several caches can share one Logger.
type scopedLogger struct {
	inner Logger
	base  Fields
}

func newScopedLogger(l Logger, name, kind string) Logger {
	if _, ok := l.(NopLogger); ok {
		return l
	}
	return scopedLogger{inner: l, base: Fields{"name": name, "kind": kind}}
}

func (s scopedLogger) Debug(msg string, f Fields) { s.inner.Debug(msg, s.merge(f)) }
func (s scopedLogger) Info(msg string, f Fields)  { s.inner.Info(msg, s.merge(f)) }
func (s scopedLogger) Warn(msg string, f Fields)  { s.inner.Warn(msg, s.merge(f)) }
func (s scopedLogger) Error(msg string, f Fields) { s.inner.Error(msg, s.merge(f)) }

// merge never mutates f; call-site fields win over the scope.
func (s scopedLogger) merge(f Fields) Fields {
	out := make(Fields, len(s.base)+len(f))
	for k, v := range s.base {
		out[k] = v
	}
	for k, v := range f {
		out[k] = v
	}
	return out
}
