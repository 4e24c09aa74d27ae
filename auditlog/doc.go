// Package auditlog is the small, out-of-core-scope collaborator that hands
// corerepo one audit_log row per transaction plus the audit_link join row
// tying each changed entity back to it.
//
// One AuditLog is shared by every entity mutated within a single database
// transaction. The caller creates it (Issuer.Create) and passes its id to
// corerepo's write methods, which reference it from every audit row they
// insert and call Issuer.Link for each changed entity.
package auditlog
