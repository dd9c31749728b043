package queue

import "time"

// StatusNew is the status every row starts with.
const StatusNew = "NEW"

// DefaultRetentionDays is the cleanup window used when none is configured.
const DefaultRetentionDays = 10

// Item is a queue row with its metadata. Zero times mean the column is NULL.
type Item[T any] struct {
	ID         int64
	Queue      string
	Status     string
	Priority   int
	Value      T
	InsertedAt time.Time
	InsertedBy string
	AcquiredAt time.Time
	AcquiredBy string
	EligibleAt time.Time
}

// Claimed reports whether the row has been handed to a consumer.
func (i *Item[T]) Claimed() bool {
	return i != nil && !i.AcquiredAt.IsZero()
}

// Delayer may be implemented by queued values to request a delay when they
// are added to a delay-capable queue without an explicit AddOptions.Delay.
type Delayer interface {
	Delay() time.Duration
}

// AddOptions controls how a value is enqueued.
type AddOptions struct {
	Priority int
	// Delay postpones eligibility. Only delay-capable queues accept it.
	Delay time.Duration
}

// Stats summarizes one logical queue.
type Stats struct {
	Queue     string
	Unclaimed int
	Delayed   int
	Claimed   int
	// OldestUnclaimed is the insertion time of the oldest unclaimed row.
	OldestUnclaimed time.Time
}
