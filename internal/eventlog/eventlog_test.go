package eventlog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLogrusLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	NewLogrus(logrus.NewEntry(base)).LogException("ActivityQueueWorker", "PROCESSQUEUE", errors.New("db down"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ActivityQueueWorker", entry["source"])
	require.Equal(t, "PROCESSQUEUE", entry["event_code"])
	require.Equal(t, "db down", entry["error"])
	require.Equal(t, "error", entry["level"])
	require.Contains(t, entry["stacktrace"], "eventlog_test")
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	var calls []string
	record := func(name string) Logger {
		return LoggerFunc(func(source, eventCode string, err error) {
			calls = append(calls, name+":"+source+":"+eventCode+":"+err.Error())
		})
	}

	logger := Multi(record("a"), nil, record("b"))
	logger.LogException("src", "CODE", errors.New("boom"))

	require.Equal(t, []string{"a:src:CODE:boom", "b:src:CODE:boom"}, calls)
}
