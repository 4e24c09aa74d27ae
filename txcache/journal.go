package txcache

import (
	"sync"

	"github.com/google/uuid"
)

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

type journalEntry[T any] struct {
	kind  opKind
	key   uuid.UUID
	value T
}

// Journal is an ordered log of staged mutations against one cache, guarded
// by its own mutex so it never needs the wrapped cache's lock to record a
// write.
type Journal[T any] struct {
	mu      sync.Mutex
	entries []journalEntry[T]
}

// NewJournal returns an empty journal.
func NewJournal[T any]() *Journal[T] {
	return &Journal[T]{}
}

// StageAdd records an add-or-replace for key.
func (j *Journal[T]) StageAdd(key uuid.UUID, value T) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry[T]{kind: opAdd, key: key, value: value})
}

// StageRemove records a removal for key.
func (j *Journal[T]) StageRemove(key uuid.UUID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var zero T
	j.entries = append(j.entries, journalEntry[T]{kind: opRemove, key: key, value: zero})
}

// Snapshot returns a copy of the staged entries in staging order.
func (j *Journal[T]) Snapshot() []journalEntry[T] {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]journalEntry[T], len(j.entries))
	copy(out, j.entries)
	return out
}

// Reset discards every staged entry.
func (j *Journal[T]) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// Len reports the number of staged entries, for tests and diagnostics.
func (j *Journal[T]) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
