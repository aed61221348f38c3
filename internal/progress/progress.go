// Package progress is the Progress Reporter: a Postgres-backed table
// (spec §6) plus a Redis pub/sub fanout for live subscribers, following the
// teacher's StorageManager idiom in storage_manager.go.
package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// Step names and their canonical progress values, per spec §6.
const (
	StepQueued             = "queued"
	StepExtractingAudio    = "extracting_audio"
	StepChunkingAudio      = "chunking_audio"
	StepDiarizing          = "diarizing"
	StepMergingSpeakers    = "merging_speakers"
	StepSplittingBySpeaker = "splitting_by_speaker"
	StepTranscribing       = "transcribing"
	StepAggregatingResults = "aggregating_results"
	StepAnalyzing          = "analyzing"
	StepCompleted          = "completed"
	StepFailed             = "failed"
)

// StepProgress maps each canonical step to its progress value, mirroring
// the original lambdas' STEP_PROGRESS dict exactly.
var StepProgress = map[string]int{
	StepQueued:             0,
	StepExtractingAudio:    10,
	StepChunkingAudio:      15,
	StepDiarizing:          30,
	StepMergingSpeakers:    45,
	StepSplittingBySpeaker: 50,
	StepTranscribing:       70,
	StepAggregatingResults: 85,
	StepAnalyzing:          95,
	StepCompleted:          100,
}

// pubSubChannel is the Redis channel progress updates are published to, for
// any subscriber (e.g. a status-polling HTTP endpoint) interested in live
// updates rather than polling Postgres.
const pubSubChannel = "ek-transcript:progress"

// update is the payload published on the pub/sub channel. Get returns the
// same step, progress and timestamp as separate values.
type update struct {
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reporter is the Progress Reporter contract every stage depends on.
type Reporter interface {
	Report(ctx context.Context, runID, step string) error
	ReportWithProgress(ctx context.Context, runID, step string, progressOverride int) error
	Get(ctx context.Context, runID string) (step string, progressPct int, updatedAt time.Time, err error)
	UpsertRun(ctx context.Context, runID, bucket, sourceKey string, cfg models.PipelineConfig) error
	MarkFailed(ctx context.Context, runID, lastStep string, cause error) error
}

// Store is a Postgres + Redis backed Reporter.
type Store struct {
	db    *sql.DB
	redis *redis.Client
}

// New opens the Postgres connection, initializes the schema, and wires the
// Redis client, following NewStorageManager's connect-then-initSchema
// sequencing.
func New(ctx context.Context, postgresURL string, redisClient *redis.Client) (*Store, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, redis: redisClient}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE SCHEMA IF NOT EXISTS ektranscript;

	CREATE TABLE IF NOT EXISTS ektranscript.runs (
		run_id      VARCHAR(255) PRIMARY KEY,
		bucket      VARCHAR(255) NOT NULL,
		source_key  TEXT NOT NULL,
		config      JSONB NOT NULL,
		status      VARCHAR(50) NOT NULL DEFAULT 'pending',
		error       TEXT,
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		started_at  TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ektranscript.progress (
		run_id     VARCHAR(255) PRIMARY KEY REFERENCES ektranscript.runs(run_id) ON DELETE CASCADE,
		step       VARCHAR(100) NOT NULL,
		progress   INT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON ektranscript.runs(status);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// UpsertRun records a run's existence; it is the ambient job-lifecycle
// record the driver creates before the first stage runs.
func (s *Store) UpsertRun(ctx context.Context, runID, bucket, sourceKey string, cfg models.PipelineConfig) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline config: %w", err)
	}

	query := `
		INSERT INTO ektranscript.runs (run_id, bucket, source_key, config, status, started_at)
		VALUES ($1, $2, $3, $4, 'processing', CURRENT_TIMESTAMP)
		ON CONFLICT (run_id) DO UPDATE SET
			status = 'processing',
			started_at = CURRENT_TIMESTAMP
	`
	_, err = s.db.ExecContext(ctx, query, runID, bucket, sourceKey, cfgJSON)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	return s.Report(ctx, runID, StepQueued)
}

// MarkFailed records the terminal FAILED state and the error message on the
// run row. The progress row is left as it is: it holds the most recently
// reported step, which is the step that was running when the run failed.
func (s *Store) MarkFailed(ctx context.Context, runID, lastStep string, cause error) error {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	query := `
		UPDATE ektranscript.runs
		SET status = 'failed', error = $2, completed_at = CURRENT_TIMESTAMP
		WHERE run_id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, runID, errMsg); err != nil {
		return fmt.Errorf("mark run %s failed: %w", runID, err)
	}
	_ = lastStep // the progress row already carries the most recently reported step
	return nil
}

// Report records a step transition at that step's canonical progress value.
// If interview/run id is empty it is a no-op, matching update_progress's
// "if not interview_id: return False" tolerance in the original lambdas.
func (s *Store) Report(ctx context.Context, runID, step string) error {
	pct, ok := StepProgress[step]
	if !ok {
		pct = 0
	}
	return s.ReportWithProgress(ctx, runID, step, pct)
}

// ReportWithProgress records an explicit progress value for a step, for
// callers that want finer granularity than the canonical table (e.g. a
// fan-out stage reporting fractional completion mid-step).
func (s *Store) ReportWithProgress(ctx context.Context, runID, step string, progressPct int) error {
	if runID == "" {
		return nil
	}

	query := `
		INSERT INTO ektranscript.progress (run_id, step, progress, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (run_id) DO UPDATE SET
			step = EXCLUDED.step,
			progress = EXCLUDED.progress,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, runID, step, progressPct); err != nil {
		return models.NewStageError(models.TransientBlobIO, "progress.Report", fmt.Errorf("run %s: %w", runID, err))
	}

	if step == StepCompleted {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE ektranscript.runs SET status = 'completed', completed_at = CURRENT_TIMESTAMP WHERE run_id = $1`,
			runID); err != nil {
			return fmt.Errorf("mark run %s completed: %w", runID, err)
		}
	}

	s.publish(ctx, runID, step, progressPct)
	return nil
}

// publish best-effort broadcasts the update on the pub/sub channel; a
// failure here never fails the stage, since Postgres is the durable record.
func (s *Store) publish(ctx context.Context, runID, step string, progressPct int) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(update{
		RunID:     runID,
		Step:      step,
		Progress:  progressPct,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return
	}
	_ = s.redis.Publish(ctx, pubSubChannel, payload).Err()
}

// Get reads the current progress row for a run.
func (s *Store) Get(ctx context.Context, runID string) (string, int, time.Time, error) {
	var step string
	var pct int
	var updatedAt time.Time

	row := s.db.QueryRowContext(ctx,
		`SELECT step, progress, updated_at FROM ektranscript.progress WHERE run_id = $1`, runID)
	if err := row.Scan(&step, &pct, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, time.Time{}, fmt.Errorf("no progress recorded for run %s", runID)
		}
		return "", 0, time.Time{}, fmt.Errorf("get progress for run %s: %w", runID, err)
	}
	return step, pct, updatedAt, nil
}

// Close releases the Postgres connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
