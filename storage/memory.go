package storage

import (
	"context"
	"livepaint/domain"
	"sync"
)

// MemoryRepo keeps room metadata in process. State is lost on restart, which
// is fine for development and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	metadata map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{metadata: make(map[string]string)}
}

func (m *MemoryRepo) SaveRoomMetadata(ctx context.Context, room string, metadata string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[room] = metadata
	return nil
}

func (m *MemoryRepo) GetRoomMetadata(ctx context.Context, room string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	metadata, ok := m.metadata[room]
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return metadata, nil
}
