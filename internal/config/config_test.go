package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"KAFKA_BROKERS", "ACTIVITY_LOG_INTERVAL_MS", "ACTIVITY_FLUSH_ON_SHUTDOWN", "ACTIVITY_SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, 10*time.Second, cfg.LogInterval)
	require.True(t, cfg.FlushOnShutdown)
	require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("ACTIVITY_LOG_INTERVAL_MS", "2500")
	t.Setenv("ACTIVITY_FLUSH_ON_SHUTDOWN", "false")
	t.Setenv("ACTIVITY_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg := Load()

	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2500*time.Millisecond, cfg.LogInterval)
	require.False(t, cfg.FlushOnShutdown)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, 10, cfg.PostgresMaxConns)
}
