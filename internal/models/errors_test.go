package models

import (
	"errors"
	"testing"
)

func TestRetryableClassifiesByKind(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want bool
	}{
		{TransientBlobIO, true},
		{TransientModelError, true},
		{DeadlineExceeded, true},
		{CorruptInput, false},
		{ClusteringInvariantViolation, false},
		{PerItemReadError, false},
	}
	for _, c := range cases {
		err := NewStageError(c.kind, "diarize", errors.New("boom"))
		if got := Retryable(err); got != c.want {
			t.Errorf("Retryable(%s) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestRetryableUnclassifiedErrorIsFalse(t *testing.T) {
	if Retryable(errors.New("plain error")) {
		t.Error("plain errors must not be treated as retryable")
	}
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	inner := NewStageError(TransientBlobIO, "blobstore.Get", errors.New("connection refused"))
	wrapped := errors.New("load chunk: " + inner.Error())
	if KindOf(wrapped) != "" {
		t.Error("KindOf must not match a plain string-wrapped error")
	}

	var asErr error = inner
	if KindOf(asErr) != TransientBlobIO {
		t.Errorf("KindOf(inner) = %q, want %q", KindOf(asErr), TransientBlobIO)
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	root := errors.New("root cause")
	se := NewStageError(CorruptInput, "extractor.Normalize", root)
	if !errors.Is(se, root) {
		t.Error("errors.Is should see through StageError to the wrapped cause")
	}
}
