package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int64
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt64(&processed, 1) == 3 {
			close(done)
		}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "noop"}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not processed in time")
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not retried in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueObservesJobDurations(t *testing.T) {
	type observation struct {
		jobType  string
		duration time.Duration
	}
	observed := make(chan observation, 2)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.Type == "flaky" {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{
		Workers: 1,
		Observe: func(jobType string, duration time.Duration) {
			observed <- observation{jobType: jobType, duration: duration}
		},
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "mail"}))
	require.NoError(t, q.Enqueue(Job{ID: "job-2", Type: "flaky"}))

	types := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case obs := <-observed:
			assert.GreaterOrEqual(t, obs.duration, time.Duration(0))
			types = append(types, obs.jobType)
		case <-time.After(2 * time.Second):
			t.Fatal("observation not recorded in time")
		}
	}
	// failures are observed too, not only clean completions
	assert.ElementsMatch(t, []string{"mail", "flaky"}, types)
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}
