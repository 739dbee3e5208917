package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/funlynk/funlynk/internal/cache"
)

// EligibilityKey is the Redis list holding queued eligibility checks
const EligibilityKey = "jobs:eligibility"

// EligibilityJob asks the background checker to re-evaluate one post
type EligibilityJob struct {
	PostID     string    `json:"post_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// EligibilityQueue is a Redis-list job queue feeding the background
// eligibility checker. With the cache disabled every operation is a no-op,
// which keeps single-process deployments working; the HTTP path evaluates
// eligibility inline anyway.
type EligibilityQueue struct {
	cache *cache.Cache
}

// NewEligibilityQueue creates an eligibility job queue
func NewEligibilityQueue(c *cache.Cache) *EligibilityQueue {
	return &EligibilityQueue{cache: c}
}

// Enqueue queues a post for re-evaluation
func (q *EligibilityQueue) Enqueue(ctx context.Context, job *EligibilityJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.cache.Push(EligibilityKey, string(data)); err != nil {
		if err == cache.ErrCacheDisabled {
			return nil
		}
		return err
	}
	return nil
}

// Dequeue blocks up to timeout waiting for the next job. It returns
// (nil, nil) when the wait expires with nothing queued.
func (q *EligibilityQueue) Dequeue(ctx context.Context, timeout time.Duration) (*EligibilityJob, error) {
	raw, err := q.cache.BlockingPop(ctx, EligibilityKey, timeout)
	if err != nil {
		if err == cache.ErrQueueEmpty || err == cache.ErrCacheDisabled {
			return nil, nil
		}
		return nil, err
	}
	var job EligibilityJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
