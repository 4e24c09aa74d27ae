package corerepo

import (
	"github.com/corebank/repocore/errtax"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/maincache"
	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jinzhu/inflection"
)

// Entity is the minimal shape every entity kind must implement: a stable
// primary key. It is deliberately identical to idxcache.Record and
// maincache.Record so one struct can play all three roles.
type Entity interface {
	PrimaryKey() uuid.UUID
}

// AuditAccessor is the set of pure get/with-style functions the engine
// needs to read and copy-update an auditable entity's four audit fields.
// Every field is required when a Descriptor is marked
// auditable; entity structs expose these as plain functions rather than
// methods so non-auditable entities never need to carry dead audit logic.
type AuditAccessor[T any] struct {
	GetHash func(T) int64
	SetHash func(T, int64) T

	GetAuditLogID func(T) (uuid.UUID, bool)
	SetAuditLogID func(T, uuid.UUID) T

	GetAntecedentHash func(T) int64
	SetAntecedentHash func(T, int64) T

	GetAntecedentAuditLogID func(T) uuid.UUID
	SetAntecedentAuditLogID func(T, uuid.UUID) T
}

func (a *AuditAccessor[T]) validate() error {
	switch {
	case a.GetHash == nil, a.SetHash == nil:
		return errtax.Wrap(errtax.ErrInvalidInput, nil, "audit accessor missing hash get/set")
	case a.GetAuditLogID == nil, a.SetAuditLogID == nil:
		return errtax.Wrap(errtax.ErrInvalidInput, nil, "audit accessor missing audit_log_id get/set")
	case a.GetAntecedentHash == nil, a.SetAntecedentHash == nil:
		return errtax.Wrap(errtax.ErrInvalidInput, nil, "audit accessor missing antecedent_hash get/set")
	case a.GetAntecedentAuditLogID == nil, a.SetAntecedentAuditLogID == nil:
		return errtax.Wrap(errtax.ErrInvalidInput, nil, "audit accessor missing antecedent_audit_log_id get/set")
	}
	return nil
}

// Descriptor declares everything the engine needs to know about one entity
// kind: its tables, its (optional) audit accessor, and its (optional)
// index projection. T is the main entity type; I is its index-record type
// (ignored when the kind is not indexed, but still required as a type
// parameter — use a throwaway type for unindexed kinds).
type Descriptor[T Entity, I idxcache.Record] struct {
	Name       string
	EntityType EntityType

	TableName      string
	AuditTableName string
	IndexTableName string

	Auditable *AuditAccessor[T]

	Cacheable   bool
	CacheConfig maincache.Config

	Indexed    bool
	ToIndex    func(T) I
	IndexSpecs []idxcache.KeySpec[I]
}

// NewDescriptor returns a Descriptor with table names derived from name via
// english pluralization (`T`, `T_idx`, `T_audit`), carrying entityType (a
// handle already obtained from RegisterEntityType) for audit_link rows.
func NewDescriptor[T Entity, I idxcache.Record](name string, entityType EntityType) Descriptor[T, I] {
	plural := inflection.Plural(name)
	return Descriptor[T, I]{
		Name:           name,
		EntityType:     entityType,
		TableName:      plural,
		AuditTableName: plural + "_audit",
		IndexTableName: plural + "_idx",
		CacheConfig:    maincache.Config{MaxEntries: 10000, EvictionPolicy: maincache.LRU},
	}
}

// WithAuditable marks the descriptor auditable using acc.
func (d Descriptor[T, I]) WithAuditable(acc *AuditAccessor[T]) Descriptor[T, I] {
	d.Auditable = acc
	return d
}

// WithIndex marks the descriptor indexed, using toIndex to project entities
// into index records declared by specs.
func (d Descriptor[T, I]) WithIndex(toIndex func(T) I, specs []idxcache.KeySpec[I]) Descriptor[T, I] {
	d.Indexed = true
	d.ToIndex = toIndex
	d.IndexSpecs = specs
	return d
}

// WithCache marks the descriptor cacheable in the main entity cache, using
// cfg. cfg replaces the CacheConfig set by NewDescriptor (MaxEntries 10000,
// LRU) as a whole; a zero cfg has MaxEntries 0, which evicts every entry
// as soon as it is inserted.
func (d Descriptor[T, I]) WithCache(cfg maincache.Config) Descriptor[T, I] {
	d.Cacheable = true
	d.CacheConfig = cfg
	return d
}

// Validate checks the descriptor is internally consistent before a Factory
// builds a Repository from it.
func (d Descriptor[T, I]) Validate() error {
	if err := validation.Validate(d.Name, validation.Required); err != nil {
		return errtax.Wrap(errtax.ErrInvalidInput, err, "descriptor name invalid")
	}
	if err := validation.Validate(d.TableName, validation.Required); err != nil {
		return errtax.Wrap(errtax.ErrInvalidInput, err, "descriptor %q missing table name", d.Name)
	}
	if d.Indexed {
		if d.ToIndex == nil {
			return errtax.Wrap(errtax.ErrInvalidInput, nil, "descriptor %q is indexed but has no ToIndex mapping", d.Name)
		}
		if len(d.IndexSpecs) == 0 {
			return errtax.Wrap(errtax.ErrInvalidInput, nil, "descriptor %q is indexed but declares no secondary keys", d.Name)
		}
	}
	if d.Auditable != nil {
		if err := d.Auditable.validate(); err != nil {
			return errtax.Wrap(errtax.ErrInvalidInput, err, "descriptor %q", d.Name)
		}
	}
	return nil
}
