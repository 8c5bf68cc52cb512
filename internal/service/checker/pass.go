package checker

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/freshness"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

// Report summarizes one pass. It is meant for logs and health reporting only,
// readers learn results from the caches.
type Report struct {
	// Provider is the catalog the pass ran against.
	Provider domain.Platform
	// Eligible is the number of instances selected for the pass.
	Eligible int
	// Published is the number of records written to the cache.
	Published int
	// Transient is the number of instances skipped after a transient failure.
	Transient int
	// Disabled is the number of instances whose update checks were turned off.
	Disabled int
	// Missing is the number of instances absent from a batch answer.
	Missing int
	// Err is set when the whole pass failed.
	Err error
}

// Healthy reports whether the pass reached the catalog.
func (r Report) Healthy() bool {
	if r.Err != nil {
		return false
	}

	return r.Eligible == 0 || r.Transient < r.Eligible
}

// Pass refreshes the cache of one catalog.
type Pass interface {
	// Provider returns the catalog this pass refreshes.
	Provider() domain.Platform
	// Run refreshes every eligible instance. sequence grows with every pass
	// and protects the cache from late answers of older passes.
	Run(ctx context.Context, instances []*domain.Instance, sequence uint64) Report
}

// outcome applies per-instance results of a pass to the cache and the store.
type outcome[V any] struct {
	provider domain.Platform
	cache    *freshness.Cache[string, V]
	store    repository.Repository
	sequence uint64

	mu     sync.Mutex
	report Report
}

func newOutcome[V any](
	provider domain.Platform,
	cache *freshness.Cache[string, V],
	store repository.Repository,
	sequence uint64,
	eligible int,
) *outcome[V] {
	return &outcome[V]{
		provider: provider,
		cache:    cache,
		store:    store,
		sequence: sequence,
		report: Report{
			Provider: provider,
			Eligible: eligible,
		},
	}
}

// success publishes the record for the instance.
func (o *outcome[V]) success(inst *domain.Instance, record freshness.Record[V]) {
	published := o.cache.PublishAt(inst.ID, o.sequence, record)

	o.mu.Lock()
	defer o.mu.Unlock()

	if published {
		o.report.Published++
	}
}

// failure routes a failed lookup: gone disables checks, anything else is skipped.
func (o *outcome[V]) failure(ctx context.Context, inst *domain.Instance, err error) {
	ctx = logger.WithFields(ctx, "instance", inst.ID, "name", inst.DisplayName())

	if provider.KindOf(err) != provider.KindGone {
		logger.WarnKV(ctx, "Update check failed, keeping the cached value", "error", err)

		o.mu.Lock()
		o.report.Transient++
		o.mu.Unlock()

		return
	}

	logger.ErrorKV(ctx, "Pack no longer exists upstream, disabling update checks", "error", err)

	// The listed copy may be stale, other writers could have changed the
	// document while the request was in flight. Only the flag is ours to flip.
	updated, getErr := o.store.Get(ctx, inst.ID)
	if getErr != nil {
		if errors.Is(getErr, repository.ErrNotFound) {
			logger.DebugKV(ctx, "Instance disappeared before update checks could be disabled")
		} else {
			logger.ErrorKV(ctx, "Failed to reload instance", "error", getErr)
		}

		return
	}

	updated.CheckForUpdates = false

	if saveErr := o.store.Save(ctx, updated); saveErr != nil {
		logger.ErrorKV(ctx, "Failed to persist disabled update checks", "error", saveErr)

		return
	}

	o.mu.Lock()
	o.report.Disabled++
	o.mu.Unlock()
}

// missing records an instance the catalog did not answer for.
func (o *outcome[V]) missing(ctx context.Context, inst *domain.Instance) {
	logger.DebugKV(ctx, "Catalog returned nothing for instance", "instance", inst.ID)

	o.mu.Lock()
	o.report.Missing++
	o.mu.Unlock()
}

func (o *outcome[V]) result() Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.report
}

// eligibleInstances returns instances affiliated with platform that have
// update checks enabled and pass the identifier check.
func eligibleInstances(
	instances []*domain.Instance,
	platform domain.Platform,
	hasIdentifier func(*domain.Instance) bool,
) []*domain.Instance {
	eligible := make([]*domain.Instance, 0, len(instances))

	for _, inst := range instances {
		if inst == nil || inst.Platform != platform || !inst.CheckForUpdates {
			continue
		}

		if !hasIdentifier(inst) {
			continue
		}

		eligible = append(eligible, inst)
	}

	return eligible
}
