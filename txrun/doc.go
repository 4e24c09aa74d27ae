// Package txrun defines the unit-of-work contract the core consumes —
// Executor and Session — and a default implementation backed by
// github.com/uptrace/bun.
//
// Executor hands out the database handle for the lifetime of one
// transaction; Session coordinates transaction-aware participants
// (txcache's Index/Main facades, and any other component that stages work
// against the transaction) so their OnCommit/OnRollback hooks run in
// registration order on commit and reverse order on rollback.
package txrun
