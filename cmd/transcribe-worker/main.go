// Command transcribe-worker runs the audio transcription pipeline, either
// as a standalone asynq queue consumer or as a single-run subprocess,
// following the teacher's dual-mode cmd/worker/main.go.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekusiadadus/ek-transcript/internal/aggregate"
	"github.com/ekusiadadus/ek-transcript/internal/audioproc"
	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
	"github.com/ekusiadadus/ek-transcript/internal/clients"
	"github.com/ekusiadadus/ek-transcript/internal/config"
	"github.com/ekusiadadus/ek-transcript/internal/diarize"
	"github.com/ekusiadadus/ek-transcript/internal/merge"
	"github.com/ekusiadadus/ek-transcript/internal/models"
	"github.com/ekusiadadus/ek-transcript/internal/pipeline"
	"github.com/ekusiadadus/ek-transcript/internal/progress"
	"github.com/ekusiadadus/ek-transcript/internal/queue"
	"github.com/ekusiadadus/ek-transcript/internal/split"
	"github.com/ekusiadadus/ek-transcript/internal/transcribe"
	"github.com/ekusiadadus/ek-transcript/internal/utils"
)

func main() {
	mode := os.Getenv("WORKER_MODE")
	if mode == "" {
		mode = "standalone"
	}

	if mode == "run" {
		runSingleRunMode()
	} else {
		runStandaloneMode()
	}
}

// runSingleRunMode reads a RunRequest JSON from stdin, runs the pipeline
// once, and writes the result to stdout, mirroring the teacher's
// subprocess mode for callers that want a single synchronous invocation.
func runSingleRunMode() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		sendError(fmt.Sprintf("failed to read stdin: %v", err))
		os.Exit(1)
	}

	var req models.RunRequest
	if err := json.Unmarshal(input, &req); err != nil {
		sendError(fmt.Sprintf("failed to parse run request: %v", err))
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	driver, closeFn, err := buildDriver(ctx, cfg)
	if err != nil {
		sendError(fmt.Sprintf("failed to initialize pipeline: %v", err))
		os.Exit(1)
	}
	defer closeFn()

	if req.Config == (models.PipelineConfig{}) {
		req.Config = cfg.Pipeline
	}

	if err := driver.Run(ctx, req); err != nil {
		sendError(fmt.Sprintf("run failed: %v", err))
		os.Exit(1)
	}

	output, _ := json.Marshal(map[string]interface{}{"success": true, "run_id": req.RunID})
	fmt.Println(string(output))
}

// runStandaloneMode runs the asynq queue consumer, the original mode.
func runStandaloneMode() {
	log.Println("ek-transcript worker starting...")

	cfg := config.Load()
	ctx := context.Background()

	driver, closeFn, err := buildDriver(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize pipeline: %v", err)
	}
	defer closeFn()
	log.Println("✓ pipeline driver initialized")

	queueConsumer, err := queue.NewConsumer(queue.Config{
		RedisURL:    cfg.RedisURL,
		Concurrency: cfg.WorkerConcurrency,
		Driver:      driver,
	})
	if err != nil {
		log.Fatalf("failed to initialize queue consumer: %v", err)
	}
	log.Println("✓ queue consumer initialized")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := queueConsumer.Start(); err != nil {
			errChan <- err
		}
	}()

	log.Println("✓ ek-transcript worker ready - waiting for runs...")
	log.Printf("  - concurrency: %d workers", cfg.WorkerConcurrency)
	log.Printf("  - temp directory: %s", cfg.TempDir)
	log.Printf("  - diarizer: %s, embedder: %s, stt: %s", cfg.DiarizerURL, cfg.EmbedderURL, cfg.STTURL)

	select {
	case <-sigChan:
		log.Println("shutdown signal received, stopping gracefully...")
		queueConsumer.Stop()
	case err := <-errChan:
		log.Fatalf("worker error: %v", err)
	}

	log.Println("ek-transcript worker stopped")
}

// buildDriver wires every stage's dependencies together, following the
// teacher's numbered-step component construction in runStandaloneMode.
func buildDriver(ctx context.Context, cfg config.Config) (*pipeline.Driver, func(), error) {
	// 1. ffmpeg helper.
	ffmpeg, err := utils.NewFFmpegHelper(cfg.TempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	log.Println("✓ ffmpeg initialized")

	// 2. Blob store (S3-backed).
	store, err := blobstore.NewS3Store(blobstore.Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		ForcePathStyle: cfg.S3ForcePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	log.Println("✓ blob store initialized")

	// 3. Redis client for progress pub/sub and asynq's backend.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("✓ Redis connection established")

	// 4. Progress Reporter (Postgres + Redis).
	reporter, err := progress.New(ctx, cfg.PostgresURL, redisClient)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize progress reporter: %w", err)
	}
	log.Println("✓ progress reporter initialized")

	// 5. ML model clients.
	diarizerClient := clients.NewDiarizerClient(cfg.DiarizerURL, 60*time.Second)
	embedderClient := clients.NewEmbedderClient(cfg.EmbedderURL, 60*time.Second)
	sttClient := clients.NewSTTClient(cfg.STTURL, 120*time.Second)
	log.Println("✓ model clients initialized")

	// 6. Stage implementations.
	extractor := audioproc.NewExtractor(store, ffmpeg, cfg.TempDir)
	chunker := audioproc.NewChunker(store, ffmpeg, cfg.TempDir)
	diarizer := diarize.New(store, diarizerClient, embedderClient)
	merger := merge.New(store)
	splitter := split.New(store, ffmpeg, cfg.TempDir)
	transcriber := transcribe.New(store, sttClient)
	aggregator := aggregate.New(store)

	driver := pipeline.New(store, reporter, extractor, chunker, diarizer, merger, splitter, transcriber, aggregator, cfg.WorkerConcurrency, cfg.StageDeadline)
	log.Println("✓ pipeline driver assembled")

	closeFn := func() {
		_ = reporter.Close()
		_ = redisClient.Close()
	}
	return driver, closeFn, nil
}

// sendError writes an error response to stdout as JSON, for single-run
// mode callers that parse stdout.
func sendError(message string) {
	resp := map[string]interface{}{"success": false, "error": message}
	encoded, _ := json.Marshal(resp)
	fmt.Println(string(encoded))
}
