// Package ingest drains the activity queue and writes it to storage in batches.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pateepk/AgileSite-sub083/internal/domain"
	"github.com/pateepk/AgileSite-sub083/internal/observability"
)

// Drainer hands over every queued activity in FIFO order.
type Drainer interface {
	DrainAll() []*domain.Activity
}

// BulkInserter writes activities as one atomic unit.
//
// Implementations must assign strictly increasing, contiguous identities in the
// order the activities are supplied and return the identity of the last one, or
// zero when no identities were assigned. The Persistor trusts this contract and
// cannot detect a violation of it.
type BulkInserter interface {
	BulkInsertAndGetLastIdentity(ctx context.Context, activities []*domain.Activity) (int64, error)
}

// Batch is the ordered set of activities drained in one flush.
type Batch struct {
	ID         uuid.UUID
	Activities []*domain.Activity
}

// Outcome classifies a flush.
type Outcome string

const (
	OutcomeEmpty     Outcome = "empty"
	OutcomePersisted Outcome = "persisted"
	OutcomeVetoed    Outcome = "vetoed"
	OutcomeFailed    Outcome = "failed"
)

// FlushResult describes what a flush did.
type FlushResult struct {
	Outcome Outcome
	BatchID uuid.UUID
	Size    int
	LastID  int64
}

// PersistorOption configures optional behaviour for the Persistor.
type PersistorOption func(*Persistor)

// WithInterceptor installs the before/after batch hooks.
func WithInterceptor(interceptor Interceptor) PersistorOption {
	return func(p *Persistor) {
		if interceptor != nil {
			p.interceptor = interceptor
		}
	}
}

// WithPersistorLogger overrides the logger.
func WithPersistorLogger(log *logrus.Entry) PersistorOption {
	return func(p *Persistor) {
		p.log = log
	}
}

// Persistor turns the queue contents into one bulk write and backfills identities.
type Persistor struct {
	queue       Drainer
	store       BulkInserter
	interceptor Interceptor
	log         *logrus.Entry
}

// NewPersistor constructs a Persistor.
func NewPersistor(queue Drainer, store BulkInserter, opts ...PersistorOption) *Persistor {
	p := &Persistor{
		queue:       queue,
		store:       store,
		interceptor: NopInterceptor{},
		log:         logrus.StandardLogger().WithField("component", "activity-persistor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Flush drains the queue and writes the batch.
//
// An empty queue produces no storage call and no hook calls. A storage error is
// returned as is and the drained activities are dropped, not re-queued.
func (p *Persistor) Flush(ctx context.Context) (FlushResult, error) {
	activities := p.queue.DrainAll()
	if len(activities) == 0 {
		return FlushResult{Outcome: OutcomeEmpty}, nil
	}

	batch := Batch{ID: uuid.New(), Activities: activities}
	result := FlushResult{BatchID: batch.ID, Size: len(activities)}
	log := p.log.WithFields(logrus.Fields{"batch_id": batch.ID, "size": result.Size})
	batchSizeHistogram.Observe(float64(result.Size))

	if !p.interceptor.BeforeBatch(ctx, batch) {
		result.Outcome = OutcomeVetoed
		droppedCounter.WithLabelValues(string(OutcomeVetoed)).Add(float64(result.Size))
		log.Debug("activity batch vetoed")
		if err := p.interceptor.AfterBatch(ctx, batch); err != nil {
			return result, errors.Wrap(err, "after batch hooks")
		}
		return result, nil
	}

	lastID, err := p.store.BulkInsertAndGetLastIdentity(ctx, batch.Activities)
	if err != nil {
		result.Outcome = OutcomeFailed
		droppedCounter.WithLabelValues(string(OutcomeFailed)).Add(float64(result.Size))
		return result, errors.Wrapf(err, "bulk insert of %d activities", result.Size)
	}

	Backfill(batch.Activities, lastID)
	result.Outcome = OutcomePersisted
	result.LastID = lastID
	persistedCounter.Add(float64(result.Size))
	observability.RecordBatchPersisted(time.Now(), lastID)
	log.WithField("last_id", lastID).Debug("activity batch persisted")

	if err := p.interceptor.AfterBatch(ctx, batch); err != nil {
		return result, errors.Wrap(err, "after batch hooks")
	}
	return result, nil
}

// Backfill assigns identities from the last identity of a contiguous bulk insert:
// the last activity gets lastID and each earlier one the previous integer.
// A zero lastID means nothing was assigned and leaves the batch untouched.
func Backfill(activities []*domain.Activity, lastID int64) {
	if lastID == 0 {
		return
	}
	for k := 0; k < len(activities); k++ {
		activities[len(activities)-1-k].ID = lastID - int64(k)
	}
}
