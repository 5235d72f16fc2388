// Package publish announces persisted activities to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/pateepk/AgileSite-sub083/internal/domain"
	"github.com/pateepk/AgileSite-sub083/internal/ingest"
)

// EventTypeRecorded is the event_type header of every published message.
const EventTypeRecorded = "activity.recorded"

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// ActivityRecorded is the payload emitted for each persisted activity.
type ActivityRecorded struct {
	ActivityID int64     `json:"activity_id"`
	Type       string    `json:"activity_type"`
	Created    time.Time `json:"created"`
	ContactID  int64     `json:"contact_id,omitempty"`
	SiteID     int       `json:"site_id,omitempty"`
	NodeID     int       `json:"node_id,omitempty"`
	ItemID     int       `json:"item_id,omitempty"`
	Value      string    `json:"value,omitempty"`
	URL        string    `json:"url,omitempty"`
	Campaign   string    `json:"campaign,omitempty"`
}

// Publisher is an ingest.Interceptor that publishes identified activities after each batch.
// Activities without an identity (vetoed batches, storage without identities) are skipped.
type Publisher struct {
	writer messageWriter
	topic  string
	log    *logrus.Entry
	wg     sync.WaitGroup
}

var _ ingest.Interceptor = (*Publisher)(nil)

// NewPublisher constructs a Publisher writing to topic.
func NewPublisher(writer messageWriter, topic string, log *logrus.Entry) *Publisher {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "activity-publisher")
	}
	return &Publisher{writer: writer, topic: topic, log: log}
}

// BeforeBatch implements ingest.Interceptor; the publisher never vetoes.
func (p *Publisher) BeforeBatch(context.Context, ingest.Batch) bool { return true }

// AfterBatch publishes one message per identified activity, keyed by its identity.
// Under a context that forbids background work the write happens inline and its
// error is returned; otherwise it is handed to a goroutine and only logged.
func (p *Publisher) AfterBatch(ctx context.Context, batch ingest.Batch) error {
	msgs, err := p.messages(batch)
	if err != nil || len(msgs) == 0 {
		return err
	}

	if !ingest.AsyncAllowed(ctx) {
		return p.write(ctx, batch, msgs)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.write(context.WithoutCancel(ctx), batch, msgs); err != nil {
			p.log.WithError(err).WithField("batch_id", batch.ID).Warn("async activity publish failed")
		}
	}()
	return nil
}

// Wait blocks until background publishes have finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) write(ctx context.Context, batch ingest.Batch, msgs []kafka.Message) error {
	if err := p.writer.WriteMessages(ctx, p.topic, msgs...); err != nil {
		return errors.Wrapf(err, "publish %d activities to %s", len(msgs), p.topic)
	}
	publishedCounter.Add(float64(len(msgs)))
	return nil
}

func (p *Publisher) messages(batch ingest.Batch) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(batch.Activities))
	now := time.Now().UTC()
	for _, a := range batch.Activities {
		if !a.Persisted() {
			continue
		}
		body, err := json.Marshal(recorded(a))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(a.ID, 10)),
			Value: body,
			Time:  now,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(EventTypeRecorded)},
				{Key: "batch_id", Value: []byte(batch.ID.String())},
			},
		})
	}
	return msgs, nil
}

func recorded(a *domain.Activity) ActivityRecorded {
	return ActivityRecorded{
		ActivityID: a.ID,
		Type:       a.Type,
		Created:    a.Created,
		ContactID:  a.ContactID,
		SiteID:     a.SiteID,
		NodeID:     a.NodeID,
		ItemID:     a.ItemID,
		Value:      a.Value,
		URL:        a.URL,
		Campaign:   a.Campaign,
	}
}
