// Package corerepo implements the audit engine and the uniform repository
// template contract: per-entity-kind Repository values built by a Factory,
// composing audithash, idxcache, maincache, txcache, txrun, and auditlog
// into create/load/update/delete/exist/load_audits batch operations with
// the four-step write protocol and the hash-chain change-detection gate.
//
// Entity shape is declared, not inferred: callers register one Descriptor
// per entity kind, naming its tables, its audit-field accessors (if
// auditable), and its to_index projection (if indexed) as plain function
// values, rather than a trait/interface hierarchy spread across
// Identifiable/Auditable/Indexable embeddings.
package corerepo
