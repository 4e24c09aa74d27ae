// Package auditverify is an explicitly optional standalone checker for
// antecedent chain continuity and hash recomputation across an entity's
// audit history. The write path enforces both as it writes; this package
// exists for callers who want to verify them independently against data
// already on disk.
package auditverify
