package txrun

import (
	"context"

	"github.com/corebank/repocore/errtax"
	"github.com/uptrace/bun"
)

// Participant is implemented by anything that stages mutations against a
// transaction and must converge them into shared state on commit, or
// discard them on rollback (txcache.Index, txcache.Main).
type Participant interface {
	OnCommit(ctx context.Context) error
	OnRollback(ctx context.Context) error
}

// Executor opens a transaction and runs fn with a database handle bound to
// it, then notifies the Session's participants. The bun-backed Executor
// opens a new transaction on every call and never returns
// errtax.ErrTransactionConsumed.
type Executor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB, session *Session) error) error
}

// Session coordinates the participants registered during one unit of work.
// Commit/Rollback are invoked by the Executor's RunInTx wrapper after the
// database transaction itself has committed or rolled back — so a
// Session never holds the transaction lock while invoking a participant's
// hook.
type Session struct {
	participants []Participant
}

// NewSession returns an empty session. Callers do not normally construct
// this directly; the bun-backed Executor does so per transaction.
func NewSession() *Session {
	return &Session{}
}

// Register adds p to the set of participants notified on commit/rollback.
func (s *Session) Register(p Participant) {
	s.participants = append(s.participants, p)
}

// Commit invokes OnCommit on every registered participant in registration
// order. A participant's apply failure is never surfaced
// here — it is the participant's own responsibility to log and continue
// (CacheApplyWarning), since by the time Commit runs the database has
// already committed and the cache must converge, not veto.
func (s *Session) Commit(ctx context.Context) {
	for _, p := range s.participants {
		_ = p.OnCommit(ctx)
	}
}

// Rollback invokes OnRollback on every registered participant in reverse
// registration order.
func (s *Session) Rollback(ctx context.Context) {
	for i := len(s.participants) - 1; i >= 0; i-- {
		_ = s.participants[i].OnRollback(ctx)
	}
}

// bunExecutor is the default Executor, backed by a *bun.DB connection
// pool. Each RunInTx call opens and commits/rolls back one real database
// transaction via bun's own BEGIN/COMMIT/ROLLBACK handling.
type bunExecutor struct {
	db *bun.DB
}

// NewExecutor returns an Executor backed by db.
func NewExecutor(db *bun.DB) Executor {
	return &bunExecutor{db: db}
}

func (e *bunExecutor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB, session *Session) error) error {
	session := NewSession()

	runErr := e.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx, session)
	})
	if runErr != nil {
		session.Rollback(ctx)
		return errtax.Wrap(errtax.ErrDatabase, runErr, "transaction failed")
	}

	session.Commit(ctx)
	return nil
}
