package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/synckv"
)

var _ synckv.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=synckv.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "synckv")}
}

func (l LogrusLogger) Debug(msg string, f synckv.Fields) { l.entry(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f synckv.Fields)  { l.entry(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f synckv.Fields)  { l.entry(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f synckv.Fields) { l.entry(f).Error(msg) }

func (l LogrusLogger) entry(f synckv.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	if err, ok := f["err"].(error); ok {
		rest := make(logrus.Fields, len(f)-1)
		for k, v := range f {
			if k != "err" {
				rest[k] = v
			}
		}
		return l.E.WithError(err).WithFields(rest)
	}
	return l.E.WithFields(logrus.Fields(f))
}
