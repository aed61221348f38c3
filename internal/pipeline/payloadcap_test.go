package pipeline

import (
	"context"
	"testing"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
)

func TestStashIfOversizedKeepsSmallPayloadInline(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	stashed, err := stashIfOversized(ctx, store, "bucket", "key.json", []string{"a", "b"}, 1024)
	if err != nil {
		t.Fatalf("stashIfOversized: %v", err)
	}
	if stashed {
		t.Error("small payload should not be stashed")
	}
	if _, err := store.Get(ctx, "bucket", "key.json"); err == nil {
		t.Error("small payload should not have been written to the store")
	}
}

func TestStashIfOversizedPersistsOverCapPayload(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	big := make([]string, 200)
	for i := range big {
		big[i] = "this-is-a-reasonably-long-element-to-push-past-the-cap"
	}

	stashed, err := stashIfOversized(ctx, store, "bucket", "key.json", big, 64)
	if err != nil {
		t.Fatalf("stashIfOversized: %v", err)
	}
	if !stashed {
		t.Error("oversized payload should have been stashed")
	}

	data, err := store.Get(ctx, "bucket", "key.json")
	if err != nil {
		t.Fatalf("expected the stashed blob to be retrievable: %v", err)
	}
	if len(data) == 0 {
		t.Error("stashed blob should not be empty")
	}
}
