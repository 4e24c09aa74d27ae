package corerepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/corebank/repocore/audithash"
	"github.com/corebank/repocore/auditlog"
	"github.com/corebank/repocore/errtax"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/maincache"
	"github.com/corebank/repocore/txcache"
	"github.com/corebank/repocore/txrun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditPage is load_audits' paginated result shape.
type AuditPage[T Entity] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// Repository is the uniform façade for one entity kind:
// create/load/update/delete/exist/load_audits plus
// secondary-key lookups, composing the audit engine (C6), the shared
// caches it was built against (C2/C3), and the unit-of-work executor.
type Repository[T Entity, I idxcache.Record] struct {
	desc   Descriptor[T, I]
	exec   txrun.Executor
	issuer auditlog.Issuer

	indexShared *idxcache.Cache[I]
	mainShared  *maincache.Cache[T]
}

func (r *Repository[T, I]) newParticipants() (*txcache.Index[I], *txcache.Main[T]) {
	var idxTx *txcache.Index[I]
	var mainTx *txcache.Main[T]
	if r.desc.Indexed {
		idxTx = txcache.NewIndex(r.indexShared)
	}
	if r.desc.Cacheable {
		mainTx = txcache.NewMain(r.mainShared)
	}
	return idxTx, mainTx
}

// registerIfPresent registers idxTx/mainTx with session, skipping whichever
// is nil. Each is checked as its own concrete pointer type before being
// handed to Register (which takes the txrun.Participant interface) so a
// nil *txcache.Index[I]/*txcache.Main[T] is never wrapped into a non-nil
// interface value.
func registerIfPresent[I idxcache.Record, T Entity](session *txrun.Session, idxTx *txcache.Index[I], mainTx *txcache.Main[T]) {
	if idxTx != nil {
		session.Register(idxTx)
	}
	if mainTx != nil {
		session.Register(mainTx)
	}
}

// CreateBatch implements the create path. Empty input short-circuits
// with no database traffic.
func (r *Repository[T, I]) CreateBatch(ctx context.Context, entities []T, auditLogID uuid.UUID) ([]T, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if r.desc.Auditable != nil && auditLogID == uuid.Nil {
		return nil, errtax.Wrap(errtax.ErrInvalidInput, nil, "create_batch on %q requires an audit_log_id", r.desc.Name)
	}

	out := make([]T, 0, len(entities))
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		idxTx, mainTx := r.newParticipants()
		for _, e := range entities {
			staged, err := r.stageCreate(ctx, tx, e, auditLogID, idxTx, mainTx)
			if err != nil {
				return err
			}
			out = append(out, staged)
		}
		registerIfPresent(session, idxTx, mainTx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBatch implements the update path, including the
// mandatory change-detection gate: an entry whose recomputed hash matches
// its stored hash is returned unchanged with no database writes at all.
func (r *Repository[T, I]) UpdateBatch(ctx context.Context, entities []T, auditLogID uuid.UUID) ([]T, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if r.desc.Auditable != nil && auditLogID == uuid.Nil {
		return nil, errtax.Wrap(errtax.ErrInvalidInput, nil, "update_batch on %q requires an audit_log_id", r.desc.Name)
	}

	out := make([]T, 0, len(entities))
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		idxTx, mainTx := r.newParticipants()
		for _, e := range entities {
			staged, err := r.stageUpdate(ctx, tx, e, auditLogID, idxTx, mainTx)
			if err != nil {
				return err
			}
			out = append(out, staged)
		}
		registerIfPresent(session, idxTx, mainTx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBatch implements the delete path, returning the count
// of rows actually removed (primary keys already absent are skipped, not
// an error).
func (r *Repository[T, I]) DeleteBatch(ctx context.Context, pks []uuid.UUID, auditLogID uuid.UUID) (int, error) {
	if len(pks) == 0 {
		return 0, nil
	}
	if r.desc.Auditable != nil && auditLogID == uuid.Nil {
		return 0, errtax.Wrap(errtax.ErrInvalidInput, nil, "delete_batch on %q requires an audit_log_id", r.desc.Name)
	}

	removed := 0
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		idxTx, mainTx := r.newParticipants()
		for _, pk := range pks {
			ok, err := r.stageDelete(ctx, tx, pk, auditLogID, idxTx, mainTx)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
		registerIfPresent(session, idxTx, mainTx)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// LoadBatch implements the load path: cache-first for cacheable
// entities, output positionally aligned with pks, nil in the positions of
// missing records.
func (r *Repository[T, I]) LoadBatch(ctx context.Context, pks []uuid.UUID) ([]*T, error) {
	if len(pks) == 0 {
		return nil, nil
	}

	result := make([]*T, len(pks))
	var missing []uuid.UUID
	var missingAt []int

	if r.desc.Cacheable {
		for i, pk := range pks {
			if v, ok := r.mainShared.Get(pk); ok {
				vv := v
				result[i] = &vv
				continue
			}
			missing = append(missing, pk)
			missingAt = append(missingAt, i)
		}
	} else {
		missing = pks
		missingAt = make([]int, len(pks))
		for i := range pks {
			missingAt[i] = i
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	var rows []T
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		return tx.NewSelect().Model(&rows).ModelTableExpr(r.desc.TableName).Where("id IN (?)", bun.In(missing)).Scan(ctx)
	})
	if err != nil {
		return nil, errtax.Wrap(errtax.ErrDatabase, err, "load_batch %s", r.desc.Name)
	}

	byPK := make(map[uuid.UUID]T, len(rows))
	for _, row := range rows {
		byPK[row.PrimaryKey()] = row
	}

	for j, pk := range missing {
		row, ok := byPK[pk]
		if !ok {
			continue
		}
		rv := row
		result[missingAt[j]] = &rv
		if r.desc.Cacheable {
			r.mainShared.Insert(row)
		}
	}
	return result, nil
}

// ExistByIds implements the exist_by_ids path, preferring the index cache
// when the entity kind is indexed.
func (r *Repository[T, I]) ExistByIds(ctx context.Context, pks []uuid.UUID) ([]bool, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	out := make([]bool, len(pks))

	if r.desc.Indexed {
		for i, pk := range pks {
			out[i] = r.indexShared.ContainsPrimary(pk)
		}
		return out, nil
	}

	var found []uuid.UUID
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		return tx.NewSelect().Model((*T)(nil)).ModelTableExpr(r.desc.TableName).Column("id").Where("id IN (?)", bun.In(pks)).Scan(ctx, &found)
	})
	if err != nil {
		return nil, errtax.Wrap(errtax.ErrDatabase, err, "exist_by_ids %s", r.desc.Name)
	}

	present := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for i, pk := range pks {
		_, out[i] = present[pk]
	}
	return out, nil
}

// LoadAudits implements the load_audits path: a paginated read from the
// audit table ordered by audit_log_id descending. A
// non-existent entity returns {total:0, items:[]}, not an error.
func (r *Repository[T, I]) LoadAudits(ctx context.Context, pk uuid.UUID, limit, offset int) (AuditPage[T], error) {
	if r.desc.Auditable == nil {
		return AuditPage[T]{}, errtax.Wrap(errtax.ErrInvalidInput, nil, "%q is not auditable", r.desc.Name)
	}

	var items []T
	var total int
	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx bun.IDB, session *txrun.Session) error {
		var err error
		total, err = tx.NewSelect().Model((*T)(nil)).ModelTableExpr(r.desc.AuditTableName).Where("id = ?", pk).Count(ctx)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
		return tx.NewSelect().Model(&items).ModelTableExpr(r.desc.AuditTableName).Where("id = ?", pk).
			OrderExpr("audit_log_id DESC").Limit(limit).Offset(offset).Scan(ctx)
	})
	if err != nil {
		return AuditPage[T]{}, errtax.Wrap(errtax.ErrDatabase, err, "load_audits %s id=%s", r.desc.Name, pk)
	}
	return AuditPage[T]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// FindByI64 implements a find_by_<secondary_key> method for an int64-typed
// secondary key. Go has no per-field method generation, so this is the
// uniform stand-in.
func (r *Repository[T, I]) FindByI64(keyName string, v int64) ([]I, error) {
	if !r.desc.Indexed {
		return nil, errtax.Wrap(errtax.ErrInvalidInput, nil, "%q is not indexed", r.desc.Name)
	}
	return r.indexShared.GetByI64Index(keyName, v), nil
}

// FindByUUID is FindByI64's UUID-keyed counterpart.
func (r *Repository[T, I]) FindByUUID(keyName string, v uuid.UUID) ([]I, error) {
	if !r.desc.Indexed {
		return nil, errtax.Wrap(errtax.ErrInvalidInput, nil, "%q is not indexed", r.desc.Name)
	}
	return r.indexShared.GetByUUIDIndex(keyName, v), nil
}

func (r *Repository[T, I]) stageCreate(ctx context.Context, tx bun.IDB, e T, auditLogID uuid.UUID, idxTx *txcache.Index[I], mainTx *txcache.Main[T]) (T, error) {
	acc := r.desc.Auditable
	if acc != nil {
		e = acc.SetHash(e, 0)
		e = acc.SetAuditLogID(e, auditLogID)
		e = acc.SetAntecedentHash(e, 0)
		e = acc.SetAntecedentAuditLogID(e, uuid.Nil)

		h, err := audithash.Hash(e)
		if err != nil {
			return e, errtax.Wrap(errtax.ErrEncoding, err, "hash %s on create", r.desc.Name)
		}
		e = acc.SetHash(e, h)

		if _, err := tx.NewInsert().Model(&e).ModelTableExpr(r.desc.AuditTableName).Exec(ctx); err != nil {
			return e, errtax.Wrap(errtax.ErrDatabase, err, "insert audit row for %s %s", r.desc.Name, e.PrimaryKey())
		}
	}

	if _, err := tx.NewInsert().Model(&e).ModelTableExpr(r.desc.TableName).Exec(ctx); err != nil {
		return e, errtax.Wrap(errtax.ErrDatabase, err, "insert %s %s", r.desc.Name, e.PrimaryKey())
	}

	var idx I
	if r.desc.Indexed {
		idx = r.desc.ToIndex(e)
		if _, err := tx.NewInsert().Model(&idx).ModelTableExpr(r.desc.IndexTableName).Exec(ctx); err != nil {
			return e, errtax.Wrap(errtax.ErrDatabase, err, "insert index row for %s %s", r.desc.Name, e.PrimaryKey())
		}
	}

	if acc != nil {
		if err := r.issuer.Link(ctx, tx, auditlog.Link{AuditLogID: auditLogID, EntityID: e.PrimaryKey(), EntityType: r.desc.EntityType.String()}); err != nil {
			return e, err
		}
	}

	if idxTx != nil {
		idxTx.Add(idx)
	}
	if mainTx != nil {
		mainTx.Insert(e)
	}
	return e, nil
}

func (r *Repository[T, I]) stageUpdate(ctx context.Context, tx bun.IDB, e T, auditLogID uuid.UUID, idxTx *txcache.Index[I], mainTx *txcache.Main[T]) (T, error) {
	acc := r.desc.Auditable
	if acc == nil {
		return e, errtax.Wrap(errtax.ErrInvalidInput, nil, "update_batch requires an auditable descriptor for %q", r.desc.Name)
	}

	previousHash := acc.GetHash(e)
	previousAuditLogID, ok := acc.GetAuditLogID(e)
	if !ok {
		return e, errtax.Wrap(errtax.ErrInvalidInput, nil, "update_batch requires audit_log_id present on the input record for %s %s", r.desc.Name, e.PrimaryKey())
	}

	candidate := acc.SetHash(e, 0)
	candidateHash, err := audithash.Hash(candidate)
	if err != nil {
		return e, errtax.Wrap(errtax.ErrEncoding, err, "hash %s on update", r.desc.Name)
	}
	if candidateHash == previousHash {
		// Change-detection gate: no-op update, no writes.
		return e, nil
	}

	e = acc.SetAntecedentHash(e, previousHash)
	e = acc.SetAntecedentAuditLogID(e, previousAuditLogID)
	e = acc.SetAuditLogID(e, auditLogID)
	e = acc.SetHash(e, 0)
	finalHash, err := audithash.Hash(e)
	if err != nil {
		return e, errtax.Wrap(errtax.ErrEncoding, err, "hash %s on update", r.desc.Name)
	}
	e = acc.SetHash(e, finalHash)

	if _, err := tx.NewInsert().Model(&e).ModelTableExpr(r.desc.AuditTableName).Exec(ctx); err != nil {
		return e, errtax.Wrap(errtax.ErrDatabase, err, "insert audit row for %s %s", r.desc.Name, e.PrimaryKey())
	}

	res, err := tx.NewUpdate().Model(&e).ModelTableExpr(r.desc.TableName).
		Where("id = ?", e.PrimaryKey()).
		Where("hash = ?", previousHash).
		Where("audit_log_id = ?", previousAuditLogID).
		Exec(ctx)
	if err != nil {
		return e, errtax.Wrap(errtax.ErrDatabase, err, "update %s %s", r.desc.Name, e.PrimaryKey())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return e, errtax.Wrap(errtax.ErrDatabase, err, "read rows affected for %s %s", r.desc.Name, e.PrimaryKey())
	}
	if affected == 0 {
		err := errtax.Wrap(errtax.ErrConcurrentUpdate, nil, "concurrent update on %s %s", r.desc.Name, e.PrimaryKey())
		return e, errtax.WithMetadata(err, map[string]any{
			"entity_id":     e.PrimaryKey().String(),
			"expected_hash": errtax.HexHash(previousHash),
			"audit_log_id":  previousAuditLogID.String(),
		})
	}

	if err := r.issuer.Link(ctx, tx, auditlog.Link{AuditLogID: auditLogID, EntityID: e.PrimaryKey(), EntityType: r.desc.EntityType.String()}); err != nil {
		return e, err
	}

	if idxTx != nil {
		idxTx.Remove(e.PrimaryKey())
		idxTx.Add(r.desc.ToIndex(e))
	}
	if mainTx != nil {
		mainTx.Update(e)
	}
	return e, nil
}

func (r *Repository[T, I]) stageDelete(ctx context.Context, tx bun.IDB, pk uuid.UUID, auditLogID uuid.UUID, idxTx *txcache.Index[I], mainTx *txcache.Main[T]) (bool, error) {
	var current T
	err := tx.NewSelect().Model(&current).ModelTableExpr(r.desc.TableName).Where("id = ?", pk).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errtax.Wrap(errtax.ErrDatabase, err, "load %s %s before delete", r.desc.Name, pk)
	}

	acc := r.desc.Auditable
	if acc != nil {
		previousHash := acc.GetHash(current)
		previousAuditLogID, ok := acc.GetAuditLogID(current)
		if !ok {
			return false, errtax.Wrap(errtax.ErrInvalidInput, nil, "delete requires audit_log_id present on live record %s %s", r.desc.Name, pk)
		}

		final := acc.SetAntecedentHash(current, previousHash)
		final = acc.SetAntecedentAuditLogID(final, previousAuditLogID)
		final = acc.SetAuditLogID(final, auditLogID)
		final = acc.SetHash(final, 0)
		h, err := audithash.Hash(final)
		if err != nil {
			return false, errtax.Wrap(errtax.ErrEncoding, err, "hash final audit for %s %s", r.desc.Name, pk)
		}
		final = acc.SetHash(final, h)

		if _, err := tx.NewInsert().Model(&final).ModelTableExpr(r.desc.AuditTableName).Exec(ctx); err != nil {
			return false, errtax.Wrap(errtax.ErrDatabase, err, "insert final audit row for %s %s", r.desc.Name, pk)
		}
	}

	if _, err := tx.NewDelete().Model((*T)(nil)).ModelTableExpr(r.desc.TableName).Where("id = ?", pk).Exec(ctx); err != nil {
		return false, errtax.Wrap(errtax.ErrDatabase, err, "delete %s %s", r.desc.Name, pk)
	}

	if acc != nil {
		if err := r.issuer.Link(ctx, tx, auditlog.Link{AuditLogID: auditLogID, EntityID: pk, EntityType: r.desc.EntityType.String()}); err != nil {
			return false, err
		}
	}

	if idxTx != nil {
		idxTx.Remove(pk)
	}
	if mainTx != nil {
		mainTx.Remove(pk)
	}
	return true, nil
}
