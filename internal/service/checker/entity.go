package checker

import (
	"context"

	"golang.org/x/sync/errgroup"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/freshness"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

// EntitySource is a catalog queried once per instance.
type EntitySource[V any] interface {
	// Provider returns the catalog name.
	Provider() domain.Platform
	// Eligible reports whether the instance carries a valid catalog identifier.
	Eligible(inst *domain.Instance) bool
	// FetchOne looks up a single instance.
	FetchOne(ctx context.Context, inst *domain.Instance) (freshness.Record[V], error)
}

type entityPass[V any] struct {
	source EntitySource[V]
	cache  *freshness.Cache[string, V]
	store  repository.Repository
	limit  int
}

// NewEntityPass creates a pass querying each eligible instance with at most limit concurrent requests.
func NewEntityPass[V any](
	source EntitySource[V],
	cache *freshness.Cache[string, V],
	store repository.Repository,
	limit int,
) Pass {
	if limit <= 0 {
		limit = 1
	}

	return &entityPass[V]{
		source: source,
		cache:  cache,
		store:  store,
		limit:  limit,
	}
}

func (p *entityPass[V]) Provider() domain.Platform {
	return p.source.Provider()
}

func (p *entityPass[V]) Run(ctx context.Context, instances []*domain.Instance, sequence uint64) Report {
	eligible := eligibleInstances(instances, p.source.Provider(), p.source.Eligible)
	out := newOutcome(p.source.Provider(), p.cache, p.store, sequence, len(eligible))

	logger.InfoKV(ctx, "Querying catalog per instance", "instances", len(eligible), "workers", p.limit)

	var group errgroup.Group

	group.SetLimit(p.limit)

	for _, inst := range eligible {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				out.failure(ctx, inst, provider.Transient(err))
				return nil
			}

			record, err := p.source.FetchOne(ctx, inst)
			if err != nil {
				out.failure(ctx, inst, err)
				return nil
			}

			out.success(inst, record)

			return nil
		})
	}

	// Workers never return errors, every outcome is handled in place.
	_ = group.Wait()

	return out.result()
}
