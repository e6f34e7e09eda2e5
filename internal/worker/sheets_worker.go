package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tennisluv/internal/domain"
	"tennisluv/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TaskPublish = "publish"

// SheetTask is one request to rewrite the entries sheet.
type SheetTask struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	Entries   []models.Entry `json:"entries"`
	Courts    []models.Court `json:"courts"`
	Attempt   int            `json:"attempt"`
	LastError string         `json:"lastError,omitempty"`
	NotBefore time.Time      `json:"notBefore,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SheetsWorker publishes entry snapshots to Google Sheets in the background.
// Tasks go to a redis list when redis is available and to a local channel
// otherwise. Tasks that keep failing end up in a redis dead-letter list.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SheetTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	retry = retry.withDefaults()
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets_worker").Logger()
	}

	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan SheetTask, 128),
		redisQueueKey: "tennisluv:sheets:queue",
		deadLetterKey: "tennisluv:sheets:deadletter",
		pollInterval:  2 * time.Second,
		logger:        l,
		now:           time.Now,
	}
}

// EnqueuePublish schedules a sheet rewrite with the given snapshot and
// returns the task id.
func (w *SheetsWorker) EnqueuePublish(ctx context.Context, entries []models.Entry, courts []models.Court, from, to time.Time) (string, error) {
	if to.Before(from) {
		return "", errors.New("range end before start")
	}
	task := SheetTask{
		ID:        uuid.NewString(),
		Type:      TaskPublish,
		From:      models.Day(from),
		To:        models.Day(to),
		Entries:   entries,
		Courts:    courts,
		CreatedAt: w.now(),
	}
	if err := w.enqueue(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

func (w *SheetsWorker) enqueue(ctx context.Context, task SheetTask) error {
	if task.Type == "" {
		return errors.New("task type is required")
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("queue full, task %s dropped", task.ID)
	}
}

// Start runs the consume loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.runTask(ctx, t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.runTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.runTask(ctx, t)
		case <-time.After(w.pollInterval):
		}
	}
}

// runTask waits out the task's backoff before processing it.
func (w *SheetsWorker) runTask(ctx context.Context, t SheetTask) {
	if wait := t.NotBefore.Sub(w.now()); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			// keep it for the next run
			_ = w.enqueue(context.Background(), t)
			return
		case <-timer.C:
		}
	}
	w.processTask(ctx, t)
}

func (w *SheetsWorker) tryLocalQueue() (SheetTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return SheetTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (SheetTask, bool) {
	if w.redis == nil {
		return SheetTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return SheetTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return SheetTask{}, false
	}
	if len(res) != 2 {
		return SheetTask{}, false
	}
	var task SheetTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return SheetTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task SheetTask) {
	if err := w.handleSheetTask(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Info().
		Str("task_id", task.ID).
		Int("entries", len(task.Entries)).
		Str("from", task.From.Format(models.DateLayout)).
		Str("to", task.To.Format(models.DateLayout)).
		Msg("sheet published")
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, task SheetTask) error {
	switch task.Type {
	case TaskPublish:
		if w.sheets == nil {
			return errors.New("sheets client is not configured")
		}
		return w.sheets.Publish(ctx, task.Entries, task.Courts, task.From, task.To)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task SheetTask, cause error) {
	task.Attempt++
	task.LastError = cause.Error()
	if w.retryPolicy.Exhausted(task.Attempt) {
		w.logger.Error().Err(cause).Str("task_id", task.ID).Int("attempt", task.Attempt).Msg("task failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	task.NotBefore = w.now().Add(delay)
	w.logger.Warn().Err(cause).Str("task_id", task.ID).Dur("retry_in", delay).Msg("task will be retried")
	if err := w.enqueue(ctx, task); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("requeue failed")
		w.pushDeadLetter(ctx, task)
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task SheetTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task SheetTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("deadletter push failed")
	}
}

// DeadLetters returns up to limit failed tasks, newest first.
func (w *SheetsWorker) DeadLetters(ctx context.Context, limit int64) ([]SheetTask, error) {
	if w.redis == nil {
		return nil, nil
	}
	raw, err := w.redis.LRange(ctx, w.deadLetterKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]SheetTask, 0, len(raw))
	for _, r := range raw {
		var t SheetTask
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
