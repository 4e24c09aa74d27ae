package txcache

import (
	"context"
	"log/slog"

	"github.com/corebank/repocore/idxcache"
	"github.com/google/uuid"
)

// Index is a transaction-scoped view over a shared idxcache.Cache. Writes
// made through Index are only visible to reads made through this same
// Index until OnCommit replays them into the shared cache; OnRollback
// discards them instead.
//
// Index implements txrun.Participant without importing txrun, so that
// txrun (which already imports this module's errtax) never needs to
// import txcache back.
type Index[I idxcache.Record] struct {
	shared  *idxcache.Cache[I]
	journal *Journal[I]
}

// NewIndex wraps shared in a fresh transaction-scoped staging view.
func NewIndex[I idxcache.Record](shared *idxcache.Cache[I]) *Index[I] {
	return &Index[I]{shared: shared, journal: NewJournal[I]()}
}

// Add stages an insert-or-replace, visible only to this Index until commit.
func (x *Index[I]) Add(rec I) {
	x.journal.StageAdd(rec.PrimaryKey(), rec)
}

// Update is an alias for Add: replace is insert-or-replace.
func (x *Index[I]) Update(rec I) {
	x.Add(rec)
}

// Remove stages a deletion.
func (x *Index[I]) Remove(pk uuid.UUID) {
	x.journal.StageRemove(pk)
}

// GetByPrimary reads through the journal first, falling back to the shared
// cache if pk has no staged entry.
func (x *Index[I]) GetByPrimary(pk uuid.UUID) (I, bool) {
	rec, ok := x.shared.GetByPrimary(pk)
	for _, e := range x.journal.Snapshot() {
		if e.key != pk {
			continue
		}
		if e.kind == opRemove {
			var zero I
			rec, ok = zero, false
		} else {
			rec, ok = e.value, true
		}
	}
	return rec, ok
}

// ContainsPrimary is GetByPrimary without the value.
func (x *Index[I]) ContainsPrimary(pk uuid.UUID) bool {
	_, ok := x.GetByPrimary(pk)
	return ok
}

// GetByI64Index merges the shared secondary-key view with staged entries:
// a staged removal excludes a key regardless of the shared state, and a
// staged add/update is included only if its own value for keyName matches
// v (so a record staged under a different secondary value no longer shows
// up here even before commit).
func (x *Index[I]) GetByI64Index(keyName string, v int64) []I {
	result := resultSet[I]{}
	for _, rec := range x.shared.GetByI64Index(keyName, v) {
		result[rec.PrimaryKey()] = rec
	}
	for _, e := range x.journal.Snapshot() {
		delete(result, e.key)
		if e.kind == opRemove {
			continue
		}
		if mv, present := x.shared.I64ValueFor(keyName, e.value); present && mv == v {
			result[e.key] = e.value
		}
	}
	return result.values()
}

// GetByUUIDIndex is GetByI64Index's UUID-keyed counterpart.
func (x *Index[I]) GetByUUIDIndex(keyName string, v uuid.UUID) []I {
	result := resultSet[I]{}
	for _, rec := range x.shared.GetByUUIDIndex(keyName, v) {
		result[rec.PrimaryKey()] = rec
	}
	for _, e := range x.journal.Snapshot() {
		delete(result, e.key)
		if e.kind == opRemove {
			continue
		}
		if mv, present := x.shared.UUIDValueFor(keyName, e.value); present && mv == v {
			result[e.key] = e.value
		}
	}
	return result.values()
}

// OnCommit replays staged entries into the shared cache in staging order
// and resets the journal. Applying to the shared cache cannot itself fail
// (idxcache.Cache has no fallible operations), but the replay is guarded
// against panics so a misbehaving comparator in a caller's record type can
// never take down a commit.
func (x *Index[I]) OnCommit(ctx context.Context) error {
	defer x.journal.Reset()
	for _, e := range x.journal.Snapshot() {
		x.applyLocked(e)
	}
	return nil
}

// OnRollback discards every staged entry.
func (x *Index[I]) OnRollback(ctx context.Context) error {
	x.journal.Reset()
	return nil
}

func (x *Index[I]) applyLocked(e journalEntry[I]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("txcache: index apply panicked, entry dropped", "key", e.key, "recover", r)
		}
	}()
	switch e.kind {
	case opAdd:
		x.shared.Add(e.value)
	case opRemove:
		x.shared.Remove(e.key)
	}
}

type resultSet[I idxcache.Record] map[uuid.UUID]I

func (r resultSet[I]) values() []I {
	out := make([]I, 0, len(r))
	for _, rec := range r {
		out = append(out, rec)
	}
	return out
}
