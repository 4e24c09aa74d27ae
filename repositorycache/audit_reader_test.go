package repositorycache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/corebank/repocore/cache"
	"github.com/corebank/repocore/corerepo"
	"github.com/google/uuid"
)

type auditEntity struct {
	ID uuid.UUID
}

func (e auditEntity) PrimaryKey() uuid.UUID { return e.ID }

type mockAuditReader struct {
	mu      sync.Mutex
	calls   int
	page    corerepo.AuditPage[auditEntity]
	err     error
	lastPK  uuid.UUID
	lastLim int
	lastOff int
}

func (m *mockAuditReader) LoadAudits(ctx context.Context, pk uuid.UUID, limit, offset int) (corerepo.AuditPage[auditEntity], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPK, m.lastLim, m.lastOff = pk, limit, offset
	return m.page, m.err
}

func TestCachedAuditReader_CacheMissFetchesAndStores(t *testing.T) {
	base := &mockAuditReader{page: corerepo.AuditPage[auditEntity]{Total: 1, Limit: 10, Offset: 0}}
	c := NewAuditReader[auditEntity](base, newMockCacheService(), cache.NewDefaultKeySerializer())

	pk := uuid.New()
	page, err := c.LoadAudits(context.Background(), pk, 10, 0)
	if err != nil {
		t.Fatalf("LoadAudits: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected Total=1, got %d", page.Total)
	}
	if base.calls != 1 {
		t.Errorf("expected base to be called once on a miss, got %d", base.calls)
	}

	if _, err := c.LoadAudits(context.Background(), pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits (second call): %v", err)
	}
	if base.calls != 1 {
		t.Errorf("expected the second call to be served from cache, base was called %d time(s)", base.calls)
	}
}

func TestCachedAuditReader_DifferentPagesAreDifferentKeys(t *testing.T) {
	base := &mockAuditReader{page: corerepo.AuditPage[auditEntity]{Total: 5}}
	c := NewAuditReader[auditEntity](base, newMockCacheService(), cache.NewDefaultKeySerializer())

	pk := uuid.New()
	if _, err := c.LoadAudits(context.Background(), pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits page 0: %v", err)
	}
	if _, err := c.LoadAudits(context.Background(), pk, 10, 10); err != nil {
		t.Fatalf("LoadAudits page 1: %v", err)
	}
	if base.calls != 2 {
		t.Errorf("expected each distinct page to miss independently, base called %d time(s)", base.calls)
	}
}

func TestCachedAuditReader_ErrorPropagation(t *testing.T) {
	wantErr := errors.New("boom")
	base := &mockAuditReader{err: wantErr}
	c := NewAuditReader[auditEntity](base, newMockCacheService(), cache.NewDefaultKeySerializer())

	_, err := c.LoadAudits(context.Background(), uuid.New(), 10, 0)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the base error to propagate, got %v", err)
	}
}

func TestCachedAuditReader_CacheTagsScopeDistinctKeys(t *testing.T) {
	base := &mockAuditReader{page: corerepo.AuditPage[auditEntity]{Total: 1}}
	c := NewAuditReader[auditEntity](base, newMockCacheService(), cache.NewDefaultKeySerializer())

	pk := uuid.New()
	untagged := context.Background()
	tenantA := WithCacheTags(context.Background(), "tenant:a")
	tenantB := WithCacheTags(context.Background(), "tenant:b")

	if _, err := c.LoadAudits(untagged, pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits (untagged): %v", err)
	}
	if _, err := c.LoadAudits(tenantA, pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits (tenant a): %v", err)
	}
	if _, err := c.LoadAudits(tenantB, pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits (tenant b): %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected each tag scope to miss independently, base called %d time(s)", base.calls)
	}

	if _, err := c.LoadAudits(tenantA, pk, 10, 0); err != nil {
		t.Fatalf("LoadAudits (tenant a, repeat): %v", err)
	}
	if base.calls != 3 {
		t.Errorf("expected the repeat tenant-a read to be served from cache, base called %d time(s)", base.calls)
	}
}

func TestCachedAuditReader_InvalidateAudits_DropsAllPagesForEntity(t *testing.T) {
	base := &mockAuditReader{page: corerepo.AuditPage[auditEntity]{Total: 1}}
	cacheSvc := newMockCacheService()
	c := NewAuditReader[auditEntity](base, cacheSvc, cache.NewDefaultKeySerializer())

	pkA := uuid.New()
	pkB := uuid.New()
	ctx := context.Background()

	if _, err := c.LoadAudits(ctx, pkA, 10, 0); err != nil {
		t.Fatalf("LoadAudits pkA page 0: %v", err)
	}
	if _, err := c.LoadAudits(ctx, pkA, 10, 10); err != nil {
		t.Fatalf("LoadAudits pkA page 1: %v", err)
	}
	if _, err := c.LoadAudits(ctx, pkB, 10, 0); err != nil {
		t.Fatalf("LoadAudits pkB page 0: %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 misses before invalidation, got %d", base.calls)
	}

	if err := c.InvalidateAudits(ctx, pkA); err != nil {
		t.Fatalf("InvalidateAudits: %v", err)
	}

	if _, err := c.LoadAudits(ctx, pkA, 10, 0); err != nil {
		t.Fatalf("LoadAudits pkA page 0 (after invalidation): %v", err)
	}
	if _, err := c.LoadAudits(ctx, pkA, 10, 10); err != nil {
		t.Fatalf("LoadAudits pkA page 1 (after invalidation): %v", err)
	}
	if base.calls != 5 {
		t.Errorf("expected both of pkA's pages to miss again after invalidation, base called %d time(s)", base.calls)
	}

	if _, err := c.LoadAudits(ctx, pkB, 10, 0); err != nil {
		t.Fatalf("LoadAudits pkB page 0 (after invalidating pkA): %v", err)
	}
	if base.calls != 5 {
		t.Errorf("expected pkB's page to remain cached, unaffected by pkA's invalidation, base called %d time(s)", base.calls)
	}
}
