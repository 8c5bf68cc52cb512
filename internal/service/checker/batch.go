package checker

import (
	"context"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/freshness"
	"github.com/oshokin/packwatch/internal/logger"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

// BatchSource is a catalog that answers many ids in one round trip.
type BatchSource[ID comparable, V any] interface {
	// Provider returns the catalog name.
	Provider() domain.Platform
	// Key returns the catalog id of the instance, if it has a valid one.
	Key(inst *domain.Instance) (ID, bool)
	// FetchMany looks up every id. Ids unknown to the catalog are absent from the result.
	FetchMany(ctx context.Context, ids []ID) (map[ID]freshness.Record[V], error)
}

type batchPass[ID comparable, V any] struct {
	source BatchSource[ID, V]
	cache  *freshness.Cache[string, V]
	store  repository.Repository
}

// NewBatchPass creates a pass that issues one request for all eligible instances.
func NewBatchPass[ID comparable, V any](
	source BatchSource[ID, V],
	cache *freshness.Cache[string, V],
	store repository.Repository,
) Pass {
	return &batchPass[ID, V]{
		source: source,
		cache:  cache,
		store:  store,
	}
}

func (p *batchPass[ID, V]) Provider() domain.Platform {
	return p.source.Provider()
}

func (p *batchPass[ID, V]) Run(ctx context.Context, instances []*domain.Instance, sequence uint64) Report {
	eligible := eligibleInstances(instances, p.source.Provider(), func(inst *domain.Instance) bool {
		_, ok := p.source.Key(inst)
		return ok
	})

	out := newOutcome(p.source.Provider(), p.cache, p.store, sequence, len(eligible))
	if len(eligible) == 0 {
		return out.result()
	}

	// Several instances may share one project.
	seen := make(map[ID]struct{}, len(eligible))
	ids := make([]ID, 0, len(eligible))

	for _, inst := range eligible {
		id, _ := p.source.Key(inst)
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	logger.InfoKV(ctx, "Querying catalog in one batch", "instances", len(eligible), "ids", len(ids))

	records, err := p.source.FetchMany(ctx, ids)
	if err != nil {
		// The whole batch failed, which never proves a single entity is gone.
		for _, inst := range eligible {
			out.failure(ctx, inst, transientOnly(err))
		}

		return out.result()
	}

	for _, inst := range eligible {
		id, _ := p.source.Key(inst)

		record, ok := records[id]
		if !ok {
			out.missing(ctx, inst)
			continue
		}

		out.success(inst, record)
	}

	return out.result()
}
