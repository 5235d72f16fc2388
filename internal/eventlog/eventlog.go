// Package eventlog records operational failures that are absorbed rather than returned.
package eventlog

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger receives exceptions that a background component has contained.
// Implementations must not block the caller for long and must not panic.
type Logger interface {
	LogException(source, eventCode string, err error)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(source, eventCode string, err error)

// LogException calls f.
func (f LoggerFunc) LogException(source, eventCode string, err error) {
	f(source, eventCode, err)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// LogrusLogger writes exceptions as structured error entries.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus builds a LogrusLogger. A nil entry uses the standard logger.
func NewLogrus(entry *logrus.Entry) *LogrusLogger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogrusLogger{entry: entry}
}

// LogException logs err with its source and event code, plus a stack trace when err carries one.
func (l *LogrusLogger) LogException(source, eventCode string, err error) {
	entry := l.entry.WithFields(logrus.Fields{
		"source":     source,
		"event_code": eventCode,
	})
	if err != nil {
		entry = entry.WithError(err)
		var st stackTracer
		if errors.As(err, &st) {
			entry = entry.WithField("stacktrace", fmt.Sprintf("%+v", st.StackTrace()))
		}
	}
	entry.Error("exception")
}

// Multi fans an exception out to every supplied logger. Nil loggers are skipped.
func Multi(loggers ...Logger) Logger {
	out := make(multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type multi []Logger

func (m multi) LogException(source, eventCode string, err error) {
	for _, l := range m {
		l.LogException(source, eventCode, err)
	}
}
