package txcache

import (
	"context"
	"log/slog"

	"github.com/corebank/repocore/maincache"
	"github.com/google/uuid"
)

// Main is a transaction-scoped view over a shared maincache.Cache,
// mirroring Index's staging semantics for full entity records rather than
// index records.
type Main[T maincache.Record] struct {
	shared  *maincache.Cache[T]
	journal *Journal[T]
}

// NewMain wraps shared in a fresh transaction-scoped staging view.
func NewMain[T maincache.Record](shared *maincache.Cache[T]) *Main[T] {
	return &Main[T]{shared: shared, journal: NewJournal[T]()}
}

// Insert stages an insert-or-replace.
func (x *Main[T]) Insert(e T) {
	x.journal.StageAdd(e.PrimaryKey(), e)
}

// Update is an alias for Insert.
func (x *Main[T]) Update(e T) {
	x.Insert(e)
}

// Remove stages a deletion.
func (x *Main[T]) Remove(pk uuid.UUID) {
	x.journal.StageRemove(pk)
}

// Get reads through the journal first, falling back to the shared cache.
// Unlike maincache.Cache.Get, a journal-satisfied read never touches the
// shared cache's hit/miss counters or LRU recency — those only move on
// commit, when the entry actually lands in the shared cache.
func (x *Main[T]) Get(pk uuid.UUID) (T, bool) {
	if e, kind, staged := x.latest(pk); staged {
		if kind == opRemove {
			var zero T
			return zero, false
		}
		return e, true
	}
	return x.shared.Get(pk)
}

// Contains is Get without statistics or recency effects, matching
// maincache.Cache.Contains.
func (x *Main[T]) Contains(pk uuid.UUID) bool {
	if _, kind, staged := x.latest(pk); staged {
		return kind == opAdd
	}
	return x.shared.Contains(pk)
}

func (x *Main[T]) latest(pk uuid.UUID) (T, opKind, bool) {
	var (
		val    T
		kind   opKind
		staged bool
	)
	for _, e := range x.journal.Snapshot() {
		if e.key != pk {
			continue
		}
		val, kind, staged = e.value, e.kind, true
	}
	return val, kind, staged
}

// OnCommit replays staged entries into the shared cache in staging order
// and resets the journal.
func (x *Main[T]) OnCommit(ctx context.Context) error {
	defer x.journal.Reset()
	for _, e := range x.journal.Snapshot() {
		x.applyLocked(e)
	}
	return nil
}

// OnRollback discards every staged entry.
func (x *Main[T]) OnRollback(ctx context.Context) error {
	x.journal.Reset()
	return nil
}

func (x *Main[T]) applyLocked(e journalEntry[T]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("txcache: main apply panicked, entry dropped", "key", e.key, "recover", r)
		}
	}()
	switch e.kind {
	case opAdd:
		x.shared.Insert(e.value)
	case opRemove:
		x.shared.Remove(e.key)
	}
}
