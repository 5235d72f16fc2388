package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// EventLog stores contained exceptions in the event_log table.
type EventLog struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	log     *logrus.Entry
}

// NewEventLog constructs an EventLog. Writes give up after timeout.
func NewEventLog(pool *pgxpool.Pool, timeout time.Duration, log *logrus.Entry) *EventLog {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "event-log")
	}
	return &EventLog{pool: pool, timeout: timeout, log: log}
}

// LogException records the exception. Write failures are only reported to the logger.
func (e *EventLog) LogException(source, eventCode string, err error) {
	description := ""
	if err != nil {
		description = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if _, execErr := e.pool.Exec(ctx,
		`INSERT INTO event_log (event_type, source, event_code, description, event_time) VALUES ($1,$2,$3,$4,$5)`,
		"E", source, eventCode, description, time.Now().UTC(),
	); execErr != nil {
		e.log.WithError(execErr).WithField("source", source).Warn("failed to write event log entry")
	}
}
