package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "contact"}))

	select {
	case job := <-done:
		assert.Equal(t, "job-1", job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "contact"}))

	select {
	case <-done:
		assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(_ context.Context, _ Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "job-1"}))
}
