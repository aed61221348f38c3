package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// MemoryStore is an in-process Store backed by a map, used by package
// tests throughout the pipeline and by local runs against no real S3
// endpoint. It implements the exact same contract as S3Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

var _ Store = (*MemoryStore)(nil)

func memKey(bucket, key string) string { return bucket + "/" + key }

func (m *MemoryStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[memKey(bucket, key)]
	if !ok {
		return nil, models.NewStageError(models.TransientBlobIO, "blobstore.Get", fmt.Errorf("no such key: %s/%s", bucket, key))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[memKey(bucket, key)] = stored
	return nil
}

func (m *MemoryStore) Download(ctx context.Context, bucket, key, localPath string) error {
	data, err := m.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (m *MemoryStore) Upload(ctx context.Context, localPath, bucket, key, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read local file %s: %w", localPath, err)
	}
	return m.Put(ctx, bucket, key, data, contentType)
}

func (m *MemoryStore) GetJSON(ctx context.Context, bucket, key string, out interface{}) error {
	data, err := m.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return models.NewStageError(models.CorruptInput, "blobstore.GetJSON", fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err))
	}
	return nil
}

func (m *MemoryStore) PutJSON(ctx context.Context, bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s/%s: %w", bucket, key, err)
	}
	return m.Put(ctx, bucket, key, data, "application/json")
}
