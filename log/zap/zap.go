package zap

import (
	"github.com/unkn0wn-root/synckv"
	"go.uber.org/zap"
)

var _ synckv.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "synckv" so cache events are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("synckv")} }

func (z ZapLogger) Debug(msg string, f synckv.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f synckv.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f synckv.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f synckv.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f synckv.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
