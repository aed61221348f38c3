package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekusiadadus/ek-transcript/internal/blobstore"
)

// stashIfOversized enforces the payload-size invariant (spec §5, §9): if
// value serializes to more than capBytes, it is persisted at key and the
// function returns (true, nil); otherwise it returns (false, nil) and the
// caller keeps passing value inline. A marshal or store failure is returned
// as (false, err). "Stages that receive either shape
// (inline list OR *_key) must accept both for compatibility" — callers on
// the receiving end branch on whichever the sender chose.
func stashIfOversized(ctx context.Context, store blobstore.Store, bucket, key string, value interface{}, capBytes int) (bool, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal for payload-cap check: %w", err)
	}
	if len(encoded) <= capBytes {
		return false, nil
	}
	if err := store.Put(ctx, bucket, key, encoded, "application/json"); err != nil {
		return false, fmt.Errorf("stash oversized payload at %s: %w", key, err)
	}
	return true, nil
}
