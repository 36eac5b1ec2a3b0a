package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/metrics"
	"entrepreneur-connect-backend/internal/push"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// TypePushDeliver is the task type of a queued push notification
const TypePushDeliver = "push:deliver"

const (
	pushQueue    = "push"
	pushMaxRetry = 3
)

// RedisOpt converts the redis config into asynq connection options
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewPushTask encodes a notification as an asynq task
func NewPushTask(n push.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push task: %w", err)
	}
	return asynq.NewTask(TypePushDeliver, payload, asynq.Queue(pushQueue), asynq.MaxRetry(pushMaxRetry)), nil
}

// Enqueuer queues push notifications for the worker process
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a new enqueuer
func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

// Dispatch implements push.Dispatcher by enqueueing a task
func (e *Enqueuer) Dispatch(ctx context.Context, n push.Notification) error {
	task, err := NewPushTask(n)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		metrics.PushDeliveries.WithLabelValues("enqueue_error").Inc()
		return fmt.Errorf("failed to enqueue push task: %w", err)
	}
	log.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("Push task enqueued")
	return nil
}

// Close releases the redis connection
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// HandlePushDeliver returns the asynq handler that sends queued notifications
func HandlePushDeliver(sender push.Dispatcher) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var n push.Notification
		if err := json.Unmarshal(task.Payload(), &n); err != nil {
			return fmt.Errorf("invalid push payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := sender.Dispatch(ctx, n); err != nil {
			if errors.Is(err, push.ErrNoDevice) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			log.Error().Err(err).Str("title", n.Title).Msg("Failed to deliver push notification")
			return err
		}
		return nil
	}
}

// NewMux routes worker tasks to their handlers
func NewMux(sender push.Dispatcher) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypePushDeliver, HandlePushDeliver(sender))
	return mux
}

// NewServer creates the asynq server processing the push queue
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{pushQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			log.Error().Err(err).Str("type", task.Type()).Msg("Task failed")
		}),
	})
}
