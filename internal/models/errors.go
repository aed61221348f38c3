package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure so the driver can decide whether
// to retry, escalate, or mark the run FAILED (spec §7).
type ErrorKind string

const (
	// TransientBlobIO is retryable: a blob store get/put/download/upload
	// failed for a reason that may not recur (network blip, throttling).
	TransientBlobIO ErrorKind = "TransientBlobIO"
	// TransientModelError is retryable: an ML model invocation failed
	// transiently.
	TransientModelError ErrorKind = "TransientModelError"
	// CorruptInput is fatal for the run: the input media or an
	// intermediate blob is structurally invalid.
	CorruptInput ErrorKind = "CorruptInput"
	// ClusteringInvariantViolation is fatal and indicates an
	// implementation bug in the Speaker Merger.
	ClusteringInvariantViolation ErrorKind = "ClusteringInvariantViolation"
	// PerItemReadError is recovered locally only inside the Aggregator;
	// everywhere else it is escalated.
	PerItemReadError ErrorKind = "PerItemReadError"
	// DeadlineExceeded is retryable by the driver; on final failure the
	// run is marked FAILED with the latest step recorded.
	DeadlineExceeded ErrorKind = "DeadlineExceeded"
)

// StageError wraps an underlying error with a kind and the stage/item it
// occurred in, following the teacher's "%s failed: %w" wrapping idiom.
type StageError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a StageError.
func NewStageError(kind ErrorKind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// Retryable reports whether the driver should re-invoke the item handler
// that produced this error (subject to the max-retries cap), per spec §7.
func Retryable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		switch se.Kind {
		case TransientBlobIO, TransientModelError, DeadlineExceeded:
			return true
		default:
			return false
		}
	}
	// Unclassified errors are treated conservatively as non-retryable so a
	// bug doesn't masquerade as a flaky dependency.
	return false
}

// KindOf extracts the ErrorKind from err, or "" if err is not a StageError.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
