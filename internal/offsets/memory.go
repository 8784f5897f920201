package offsets

import (
	"context"
	"sync"
)

// Memory is a process-local store. Positions do not survive a restart; it
// exists for tests and for runs where resume-from-scratch is acceptable.
type Memory struct {
	mu        sync.RWMutex
	positions map[string]string
}

func NewMemory() *Memory {
	return &Memory{positions: make(map[string]string)}
}

func (m *Memory) Load(_ context.Context, shardID string) (Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq, ok := m.positions[shardID]
	if !ok {
		return Position{}, false, nil
	}
	return Position{ShardID: shardID, SequenceNumber: seq}, true, nil
}

func (m *Memory) Commit(_ context.Context, pos Position) error {
	m.mu.Lock()
	m.positions[pos.ShardID] = pos.SequenceNumber
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
