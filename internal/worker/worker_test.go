package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tennisluv/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	from = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
)

func TestProcessTaskSuccess(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	entries := []models.Entry{{Date: from, StartHour: 10, CourtID: 1, EntryTypeID: 1}}
	id, err := worker.EnqueuePublish(ctx, entries, []models.Court{{ID: 1, Name: "Platz 1"}}, from, to)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, id, task.ID)
	worker.processTask(ctx, task)

	assert.Equal(t, 1, sheets.calls())
	assert.Len(t, sheets.lastEntries, 1)
	_, ok = worker.tryLocalQueue()
	assert.False(t, ok)
}

func TestProcessTaskRetry(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := worker.EnqueuePublish(ctx, nil, nil, from, to)
	require.NoError(t, err)
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, task)

	retried, ok := worker.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, 1, retried.Attempt)
	assert.Equal(t, "boom", retried.LastError)
	assert.Equal(t, now.Add(time.Second), retried.NotBefore)

	worker.processTask(ctx, retried)
	again, ok := worker.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, 2, again.Attempt)
	assert.Equal(t, now.Add(2*time.Second), again.NotBefore)
}

func TestProcessTaskDeadLetter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(sheets, rdb, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	_, err = worker.EnqueuePublish(ctx, nil, nil, from, to)
	require.NoError(t, err)

	task, ok := worker.tryRedis(ctx)
	require.True(t, ok)
	worker.processTask(ctx, task)

	dead, err := worker.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, task.ID, dead[0].ID)
	assert.Equal(t, "fatal", dead[0].LastError)

	n, _ := rdb.LLen(ctx, worker.redisQueueKey).Result()
	assert.Zero(t, n)
}

func TestSheetsWorker_RedisFallback(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	worker := NewSheetsWorker(&fakeSheets{}, rdb, RetryPolicy{}, nil)
	_, err = worker.EnqueuePublish(context.Background(), nil, nil, from, to)
	require.NoError(t, err)

	_, ok := worker.tryLocalQueue()
	assert.True(t, ok)
}

func TestSheetsWorker_EnqueueValidation(t *testing.T) {
	worker := NewSheetsWorker(&fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	_, err := worker.EnqueuePublish(ctx, nil, nil, to, from)
	assert.Error(t, err)

	assert.Error(t, worker.enqueue(ctx, SheetTask{ID: "x"}))
}

func TestSheetsWorker_HandleUnknownTask(t *testing.T) {
	worker := NewSheetsWorker(&fakeSheets{}, nil, RetryPolicy{}, nil)
	err := worker.handleSheetTask(context.Background(), SheetTask{Type: "upsert"})
	assert.ErrorContains(t, err, "unknown task type")

	unconfigured := NewSheetsWorker(nil, nil, RetryPolicy{}, nil)
	err = unconfigured.handleSheetTask(context.Background(), SheetTask{Type: TaskPublish})
	assert.Error(t, err)
}

func TestSheetsWorker_Start(t *testing.T) {
	sheets := &fakeSheets{done: make(chan struct{}, 1)}
	worker := NewSheetsWorker(sheets, nil, RetryPolicy{}, nil)
	worker.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(stopped)
	}()

	_, err := worker.EnqueuePublish(ctx, nil, nil, from, to)
	require.NoError(t, err)

	select {
	case <-sheets.done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
	cancel()
	<-stopped
	assert.Equal(t, 1, sheets.calls())
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(0))
	assert.Equal(t, 5*time.Second, policy.NextDelay(2000), "huge attempts clamp instead of overflowing")

	def := RetryPolicy{}
	assert.Equal(t, 2*time.Second, def.NextDelay(1))
	assert.Equal(t, time.Minute, def.NextDelay(10))
	assert.Equal(t, 3*time.Second, RetryPolicy{InitialDelay: 3 * time.Second, BackoffFactor: 0.5}.NextDelay(1))
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3}
	assert.False(t, policy.Exhausted(2))
	assert.True(t, policy.Exhausted(3))

	assert.False(t, RetryPolicy{}.Exhausted(4))
	assert.True(t, RetryPolicy{}.Exhausted(5))
}

type fakeSheets struct {
	mu          sync.Mutex
	err         error
	n           int
	lastEntries []models.Entry
	done        chan struct{}
}

func (f *fakeSheets) Publish(_ context.Context, entries []models.Entry, _ []models.Court, _, _ time.Time) error {
	f.mu.Lock()
	f.n++
	f.lastEntries = entries
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.err
}

func (f *fakeSheets) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}
