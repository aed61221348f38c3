// Package queue wires the Pipeline Driver to a top-level asynq/Redis run
// queue, adapted from the teacher's RedisConsumer.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ekusiadadus/ek-transcript/internal/models"
	"github.com/ekusiadadus/ek-transcript/internal/pipeline"
)

// TaskType is the asynq task type this consumer registers a handler for.
const TaskType = "ektranscript:run"

// Consumer consumes pipeline run requests from a Redis-backed queue.
type Consumer struct {
	server *asynq.Server
	driver *pipeline.Driver
}

// Config holds consumer configuration.
type Config struct {
	RedisURL    string
	Concurrency int
	Driver      *pipeline.Driver
}

// NewConsumer creates a Redis queue consumer, following the teacher's
// asynq.Server + RetryDelayFunc + ErrorHandler wiring.
func NewConsumer(cfg Config) (*Consumer, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"ektranscript:critical": 6,
				"ektranscript:default":  3,
				"ektranscript:low":      1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(1<<uint(n)) * time.Minute
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("task %s failed: %v", task.Type(), err)
			}),
		},
	)

	return &Consumer{server: server, driver: cfg.Driver}, nil
}

// Start begins serving run tasks; blocks until Stop is called or the
// server errors.
func (c *Consumer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskType, c.handleRunTask)

	log.Println("starting ek-transcript worker...")
	if err := c.server.Run(mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Stop shuts the consumer down gracefully.
func (c *Consumer) Stop() {
	log.Println("shutting down ek-transcript worker...")
	c.server.Shutdown()
}

func (c *Consumer) handleRunTask(ctx context.Context, task *asynq.Task) error {
	var req models.RunRequest
	if err := json.Unmarshal(task.Payload(), &req); err != nil {
		return fmt.Errorf("failed to unmarshal run request: %w", err)
	}

	log.Printf("processing run %s (source: %s)", req.RunID, req.SourceKey)

	if err := c.driver.Run(ctx, req); err != nil {
		log.Printf("run %s failed: %v", req.RunID, err)
		return err
	}

	log.Printf("run %s completed successfully", req.RunID)
	return nil
}

// EnqueueRun submits a run request onto the default queue.
func EnqueueRun(client *asynq.Client, req models.RunRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal run request: %w", err)
	}

	task := asynq.NewTask(TaskType, payload)
	if _, err := client.Enqueue(task, asynq.Queue("ektranscript:default")); err != nil {
		return fmt.Errorf("failed to enqueue run %s: %w", req.RunID, err)
	}
	return nil
}

// HealthCheck reports whether the consumer's server was initialized.
func (c *Consumer) HealthCheck() error {
	if c.server == nil {
		return fmt.Errorf("server not initialized")
	}
	return nil
}
