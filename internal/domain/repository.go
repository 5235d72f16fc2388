package domain

import "github.com/pkg/errors"

// Enqueuer accepts activities for asynchronous persistence.
type Enqueuer interface {
	Enqueue(*Activity) error
}

// Repository is the entry point request handlers use to record activities.
// Save never blocks on storage; records are written by the background worker.
type Repository struct {
	queue Enqueuer
}

// NewRepository constructs a Repository that hands activities to the supplied queue.
func NewRepository(queue Enqueuer) *Repository {
	return &Repository{queue: queue}
}

// Save validates the activity and enqueues it.
func (r *Repository) Save(activity *Activity) error {
	if activity == nil {
		return errors.WithStack(&ErrInvalidArgument{
			Name:    "activity",
			Value:   activity,
			Message: "activity must be non-nil",
		})
	}
	if activity.Persisted() {
		return errors.WithStack(&ErrInvalidArgument{
			Name:    "activity.ID",
			Value:   activity.ID,
			Message: "activity has already been persisted",
		})
	}
	return r.queue.Enqueue(activity)
}
