package auditlog

import (
	"context"
	"time"

	"github.com/corebank/repocore/errtax"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditLog is one row in the audit_log table: the transaction-scoped
// anchor every audit/audit_link row references.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_log,alias:al"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
	UpdatedByPersonID uuid.UUID `bun:"updated_by_person_id,type:uuid,notnull"`
}

// Link is one row in audit_link: it ties one changed entity to the
// AuditLog for the transaction that changed it.
type Link struct {
	bun.BaseModel `bun:"table:audit_link,alias:aln"`

	AuditLogID uuid.UUID `bun:"audit_log_id,pk,type:uuid"`
	EntityID   uuid.UUID `bun:"entity_id,pk,type:uuid"`
	EntityType string    `bun:"entity_type,notnull"`
}

// Issuer is the out-of-core-scope collaborator that creates the shared
// AuditLog row for a transaction (called by the caller, once per
// transaction) and records the Link (called by corerepo once per changed
// entity).
type Issuer interface {
	Create(ctx context.Context, tx bun.IDB, updatedBy uuid.UUID) (AuditLog, error)
	Link(ctx context.Context, tx bun.IDB, link Link) error
}

// BunIssuer is the default Issuer, inserting directly into audit_log and
// audit_link via bun.
type BunIssuer struct{}

// NewBunIssuer returns the default bun-backed Issuer.
func NewBunIssuer() *BunIssuer { return &BunIssuer{} }

func (BunIssuer) Create(ctx context.Context, tx bun.IDB, updatedBy uuid.UUID) (AuditLog, error) {
	log := AuditLog{
		ID:                uuid.Must(uuid.NewV7()),
		UpdatedAt:         time.Now().UTC(),
		UpdatedByPersonID: updatedBy,
	}
	if _, err := tx.NewInsert().Model(&log).Exec(ctx); err != nil {
		return AuditLog{}, errtax.Wrap(errtax.ErrDatabase, err, "insert audit_log")
	}
	return log, nil
}

func (BunIssuer) Link(ctx context.Context, tx bun.IDB, link Link) error {
	if _, err := tx.NewInsert().Model(&link).Exec(ctx); err != nil {
		return errtax.Wrap(errtax.ErrDatabase, err, "insert audit_link for entity %s", link.EntityID)
	}
	return nil
}
