package kds

import (
	"sync"

	"github.com/google/uuid"
)

// Boards is the per-branch queue registry. Each branch runs its own
// board so one branch's refresh never disturbs another's tickets.
type Boards struct {
	mu     sync.Mutex
	queues map[uuid.UUID]*Queue
}

// NewBoards creates an empty registry.
func NewBoards() *Boards {
	return &Boards{queues: make(map[uuid.UUID]*Queue)}
}

// Branch returns the queue for a branch, creating it on first use.
func (b *Boards) Branch(branchID uuid.UUID) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[branchID]
	if !ok {
		q = NewQueue()
		b.queues[branchID] = q
	}
	return q
}
