// Package customer is a worked example: a Customer entity that is
// auditable, indexed, and cached, plus a Note
// sibling that is none of those three, exercising the "if present"
// branches of the create/update/delete/load paths.
package customer

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/corebank/repocore/corerepo"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/maincache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EntityTypeCustomer is Customer's audit_link entity_type.
var EntityTypeCustomer = corerepo.RegisterEntityType("CUSTOMER")

// Customer is auditable, indexed (by a hashed email and by region), and
// cached in the main entity cache.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	DisplayName string    `bun:"display_name,notnull"`
	Email       string    `bun:"email,notnull"`
	RegionID    uuid.UUID `bun:"region_id,type:uuid,notnull"`

	Hash                 int64     `bun:"hash,notnull,default:0"`
	AuditLogID           uuid.UUID `bun:"audit_log_id,type:uuid"`
	AntecedentHash       int64     `bun:"antecedent_hash,notnull,default:0"`
	AntecedentAuditLogID uuid.UUID `bun:"antecedent_audit_log_id,type:uuid"`
}

// PrimaryKey implements corerepo.Entity / idxcache.Record / maincache.Record.
func (c Customer) PrimaryKey() uuid.UUID { return c.ID }

// CustomerIndex projects Customer into its two secondary keys.
type CustomerIndex struct {
	bun.BaseModel `bun:"table:customers_idx,alias:ci"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	EmailHash int64     `bun:"email_hash,notnull"`
	RegionID  uuid.UUID `bun:"region_id,type:uuid,notnull"`
}

func (i CustomerIndex) PrimaryKey() uuid.UUID { return i.ID }

func hashEmail(email string) int64 {
	return int64(xxhash.Sum64String(email))
}

func toIndex(c Customer) CustomerIndex {
	return CustomerIndex{ID: c.ID, EmailHash: hashEmail(c.Email), RegionID: c.RegionID}
}

var customerIndexSpecs = []idxcache.KeySpec[CustomerIndex]{
	{
		Name:     "email_hash",
		Kind:     idxcache.I64Key,
		I64Value: func(i CustomerIndex) (int64, bool) { return i.EmailHash, true },
	},
	{
		Name:      "region_id",
		Kind:      idxcache.UUIDKey,
		UUIDValue: func(i CustomerIndex) (uuid.UUID, bool) { return i.RegionID, true },
	},
}

var customerAuditAccessor = &corerepo.AuditAccessor[Customer]{
	GetHash: func(c Customer) int64 { return c.Hash },
	SetHash: func(c Customer, h int64) Customer { c.Hash = h; return c },

	GetAuditLogID: func(c Customer) (uuid.UUID, bool) { return c.AuditLogID, c.AuditLogID != uuid.Nil },
	SetAuditLogID: func(c Customer, id uuid.UUID) Customer { c.AuditLogID = id; return c },

	GetAntecedentHash: func(c Customer) int64 { return c.AntecedentHash },
	SetAntecedentHash: func(c Customer, h int64) Customer { c.AntecedentHash = h; return c },

	GetAntecedentAuditLogID: func(c Customer) uuid.UUID { return c.AntecedentAuditLogID },
	SetAntecedentAuditLogID: func(c Customer, id uuid.UUID) Customer { c.AntecedentAuditLogID = id; return c },
}

// NewDescriptor returns the registration-ready Customer descriptor.
func NewDescriptor() corerepo.Descriptor[Customer, CustomerIndex] {
	return corerepo.NewDescriptor[Customer, CustomerIndex]("customer", EntityTypeCustomer).
		WithAuditable(customerAuditAccessor).
		WithIndex(toIndex, customerIndexSpecs).
		WithCache(maincache.Config{MaxEntries: 5000, EvictionPolicy: maincache.LRU, TTL: 10 * time.Minute})
}

// Note is deliberately none of auditable, indexed, or cached: a plain
// child row with no audit trail, demonstrating the optional branches of
// the write/read paths when none of them apply.
type Note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CustomerID uuid.UUID `bun:"customer_id,type:uuid,notnull"`
	Body       string    `bun:"body,notnull"`
}

func (n Note) PrimaryKey() uuid.UUID { return n.ID }

// NoIndex is an unused placeholder index-record type: Descriptor still
// needs an I type parameter even when Indexed is false.
type NoIndex struct{ id uuid.UUID }

func (n NoIndex) PrimaryKey() uuid.UUID { return n.id }

// NewNoteDescriptor returns a minimal, non-auditable, non-indexed,
// non-cached descriptor for Note.
func NewNoteDescriptor() corerepo.Descriptor[Note, NoIndex] {
	return corerepo.NewDescriptor[Note, NoIndex]("note", corerepo.EntityType{})
}
