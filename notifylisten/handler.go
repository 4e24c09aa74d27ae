package notifylisten

import (
	"context"
	"encoding/json"

	"github.com/corebank/repocore/errtax"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/maincache"
)

// Handler applies one decoded notification Payload to whatever cache it is
// bound to. Implementations are expected to be idempotent: the same
// notification may be redelivered after a reconnect.
type Handler interface {
	Apply(ctx context.Context, p Payload) error
}

// IndexHandler adapts a decode function into a Handler that keeps an
// idxcache.Cache converged with a table's trigger notifications.
type IndexHandler[I idxcache.Record] struct {
	cache  *idxcache.Cache[I]
	decode func(json.RawMessage) (I, error)
}

// NewIndexHandler binds cache and decode into a Handler for one entity
// kind's index-record channel.
func NewIndexHandler[I idxcache.Record](cache *idxcache.Cache[I], decode func(json.RawMessage) (I, error)) *IndexHandler[I] {
	return &IndexHandler[I]{cache: cache, decode: decode}
}

func (h *IndexHandler[I]) Apply(ctx context.Context, p Payload) error {
	if p.Op == OpDelete {
		h.cache.Remove(p.PrimaryKey)
		return nil
	}
	rec, err := h.decode(p.Raw)
	if err != nil {
		return errtax.Wrap(errtax.ErrEncoding, err, "decode index record for %s", p.PrimaryKey)
	}
	h.cache.Add(rec)
	return nil
}

// MainHandler is IndexHandler's counterpart for the main entity cache.
type MainHandler[T maincache.Record] struct {
	cache  *maincache.Cache[T]
	decode func(json.RawMessage) (T, error)
}

// NewMainHandler binds cache and decode into a Handler for one entity
// kind's full-record channel.
func NewMainHandler[T maincache.Record](cache *maincache.Cache[T], decode func(json.RawMessage) (T, error)) *MainHandler[T] {
	return &MainHandler[T]{cache: cache, decode: decode}
}

func (h *MainHandler[T]) Apply(ctx context.Context, p Payload) error {
	if p.Op == OpDelete {
		h.cache.Remove(p.PrimaryKey)
		return nil
	}
	rec, err := h.decode(p.Raw)
	if err != nil {
		return errtax.Wrap(errtax.ErrEncoding, err, "decode entity record for %s", p.PrimaryKey)
	}
	h.cache.Insert(rec)
	return nil
}
