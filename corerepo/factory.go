package corerepo

import (
	"encoding/json"

	"github.com/corebank/repocore/auditlog"
	"github.com/corebank/repocore/idxcache"
	"github.com/corebank/repocore/maincache"
	"github.com/corebank/repocore/notifylisten"
	"github.com/corebank/repocore/txrun"
)

// Factory holds the executor, audit-log issuer and optional notification
// listener shared by every Repository built through it, and registers
// listener handlers at build time. It does not hold caches itself: each For
// call creates the entity kind's IndexCache and MainCache and the returned
// Repository holds them, so they outlive any one transaction, and two For
// calls for the same descriptor yield two Repositories with separate caches.
type Factory struct {
	exec     txrun.Executor
	issuer   auditlog.Issuer
	listener *notifylisten.Listener
}

// NewFactory builds a Factory. listener may be nil if this process does not
// participate in cross-node cache convergence (tests, single-node tools).
func NewFactory(exec txrun.Executor, issuer auditlog.Issuer, listener *notifylisten.Listener) *Factory {
	return &Factory{exec: exec, issuer: issuer, listener: listener}
}

// NotificationCodec supplies the decode functions a Descriptor needs for
// Factory to wire notifylisten handlers automatically. Entity kinds that
// never run with a listener can leave this nil.
type NotificationCodec[T Entity, I idxcache.Record] struct {
	DecodeIndex  func(json.RawMessage) (I, error)
	DecodeEntity func(json.RawMessage) (T, error)
}

// For builds a Repository for desc, validating it first (an InvalidInput
// gate at registration) and registering notifylisten handlers
// for its tables if the factory has a listener and codec is non-nil.
func For[T Entity, I idxcache.Record](f *Factory, desc Descriptor[T, I], codec *NotificationCodec[T, I]) (*Repository[T, I], error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	var indexShared *idxcache.Cache[I]
	if desc.Indexed {
		indexShared = idxcache.New[I](desc.IndexSpecs)
	}

	var mainShared *maincache.Cache[T]
	if desc.Cacheable {
		mainShared = maincache.New[T](desc.CacheConfig)
	}

	repo := &Repository[T, I]{
		desc:        desc,
		exec:        f.exec,
		issuer:      f.issuer,
		indexShared: indexShared,
		mainShared:  mainShared,
	}

	if f.listener != nil && codec != nil {
		if desc.Indexed && codec.DecodeIndex != nil {
			if err := f.listener.RegisterHandler(desc.IndexTableName, notifylisten.NewIndexHandler(indexShared, codec.DecodeIndex)); err != nil {
				return nil, err
			}
		}
		if desc.Cacheable && codec.DecodeEntity != nil {
			if err := f.listener.RegisterHandler(desc.TableName, notifylisten.NewMainHandler(mainShared, codec.DecodeEntity)); err != nil {
				return nil, err
			}
		}
	}

	return repo, nil
}
