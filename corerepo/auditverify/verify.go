package auditverify

import (
	"fmt"

	"github.com/corebank/repocore/audithash"
	"github.com/corebank/repocore/errtax"
	"github.com/google/uuid"
)

// Record is the minimal audit-row shape VerifyChain needs: the four audit
// fields plus whatever ReHash needs to recompute I3. Callers supply ReHash
// rather than this package importing a concrete entity type.
type Record struct {
	Hash                 int64
	AuditLogID           uuid.UUID
	AntecedentHash       int64
	AntecedentAuditLogID uuid.UUID

	// ReHash recomputes the record's hash with Hash treated as zero,
	// mirroring audithash.Hash applied at write time. Required.
	ReHash func() (int64, error)
}

// VerifyChain checks I2 and I3 across records, which must already be
// ordered oldest-to-newest by insertion (ascending audit_log_id insertion
// order, not the descending order LoadAudits returns — callers reverse
// first).
func VerifyChain(records []Record) error {
	for i, rec := range records {
		if err := verifyHash(rec); err != nil {
			return fmt.Errorf("record %d (audit_log_id=%s): %w", i, rec.AuditLogID, err)
		}
		if i == 0 {
			if rec.AntecedentHash != 0 || rec.AntecedentAuditLogID != uuid.Nil {
				return errtax.Wrap(errtax.ErrInvalidInput, nil, "first audit record for this entity has non-zero antecedents (hash=%d, audit_log_id=%s)", rec.AntecedentHash, rec.AntecedentAuditLogID)
			}
			continue
		}
		prev := records[i-1]
		if rec.AntecedentHash != prev.Hash {
			return errtax.Wrap(errtax.ErrInvalidInput, nil, "broken chain at record %d: antecedent_hash=%d, expected previous hash=%d", i, rec.AntecedentHash, prev.Hash)
		}
		if rec.AntecedentAuditLogID != prev.AuditLogID {
			return errtax.Wrap(errtax.ErrInvalidInput, nil, "broken chain at record %d: antecedent_audit_log_id=%s, expected previous audit_log_id=%s", i, rec.AntecedentAuditLogID, prev.AuditLogID)
		}
	}
	return nil
}

func verifyHash(rec Record) error {
	got, err := rec.ReHash()
	if err != nil {
		return errtax.Wrap(errtax.ErrEncoding, err, "rehash record")
	}
	if got != rec.Hash {
		return errtax.Wrap(errtax.ErrInvalidInput, nil, "hash mismatch: stored=%d recomputed=%d", rec.Hash, got)
	}
	return nil
}

// HashFromSnapshot is a convenience ReHash implementation for callers who
// have a zero-hash copy of the entity ready to pass straight to
// audithash.Hash.
func HashFromSnapshot(zeroHashSnapshot any) func() (int64, error) {
	return func() (int64, error) {
		return audithash.Hash(zeroHashSnapshot)
	}
}
