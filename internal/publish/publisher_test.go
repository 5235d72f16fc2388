package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/pateepk/AgileSite-sub083/internal/domain"
	"github.com/pateepk/AgileSite-sub083/internal/ingest"
)

func TestPublisherWritesIdentifiedActivitiesInline(t *testing.T) {
	producer := &stubProducer{}
	publisher := NewPublisher(producer, "activity_recorded", nil)

	batch := ingest.Batch{ID: uuid.New(), Activities: []*domain.Activity{
		{ID: 51, Type: domain.ActivityTypePageVisit, SiteID: 1, URL: "/home"},
		{ID: 0, Type: domain.ActivityTypePageVisit},
		{ID: 53, Type: domain.ActivityTypeConversion, Value: "10.5"},
	}}

	before := testutil.ToFloat64(publishedCounter)
	err := publisher.AfterBatch(ingest.SuppressAsync(context.Background()), batch)
	require.NoError(t, err)

	require.Len(t, producer.writes, 1)
	write := producer.writes[0]
	require.Equal(t, "activity_recorded", write.topic)
	require.Len(t, write.messages, 2)
	require.Equal(t, "51", string(write.messages[0].Key))
	require.Equal(t, "53", string(write.messages[1].Key))
	require.Equal(t, EventTypeRecorded, headerValue(write.messages[0], "event_type"))
	require.Equal(t, batch.ID.String(), headerValue(write.messages[0], "batch_id"))

	var payload ActivityRecorded
	require.NoError(t, json.Unmarshal(write.messages[1].Value, &payload))
	require.Equal(t, int64(53), payload.ActivityID)
	require.Equal(t, domain.ActivityTypeConversion, payload.Type)
	require.Equal(t, "10.5", payload.Value)
	require.InDelta(t, before+2, testutil.ToFloat64(publishedCounter), 0.0001)
}

func TestPublisherReturnsInlineErrors(t *testing.T) {
	producer := &stubProducer{err: errors.New("broker unavailable")}
	publisher := NewPublisher(producer, "activity_recorded", nil)

	batch := ingest.Batch{ID: uuid.New(), Activities: []*domain.Activity{{ID: 1, Type: domain.ActivityTypePageVisit}}}
	err := publisher.AfterBatch(ingest.SuppressAsync(context.Background()), batch)
	require.ErrorIs(t, err, producer.err)
}

func TestPublisherSkipsBatchesWithoutIdentities(t *testing.T) {
	producer := &stubProducer{}
	publisher := NewPublisher(producer, "activity_recorded", nil)

	batch := ingest.Batch{ID: uuid.New(), Activities: []*domain.Activity{{Type: domain.ActivityTypePageVisit}}}
	require.NoError(t, publisher.AfterBatch(context.Background(), batch))
	publisher.Wait()

	require.Empty(t, producer.snapshot())
	require.True(t, publisher.BeforeBatch(context.Background(), batch))
}

func TestPublisherWritesInBackgroundWhenAllowed(t *testing.T) {
	producer := &stubProducer{err: errors.New("ignored")}
	publisher := NewPublisher(producer, "activity_recorded", nil)

	batch := ingest.Batch{ID: uuid.New(), Activities: []*domain.Activity{{ID: 9, Type: domain.ActivityTypePageVisit}}}
	require.NoError(t, publisher.AfterBatch(context.Background(), batch))
	publisher.Wait()

	require.Len(t, producer.snapshot(), 1)
}

type topicWrite struct {
	topic    string
	messages []kafka.Message
}

type stubProducer struct {
	mu     sync.Mutex
	writes []topicWrite
	err    error
}

func (p *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, topicWrite{topic: topic, messages: msgs})
	return p.err
}

func (p *stubProducer) snapshot() []topicWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]topicWrite(nil), p.writes...)
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
