package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

// errUnknownProvider is returned when no pass is registered for a provider.
var errUnknownProvider = errors.New("no update pass registered for provider")

// Scheduler runs refresh passes on demand. Passes for different catalogs may
// overlap; a pass requested while one for the same catalog is in flight joins it.
type Scheduler struct {
	// store lists instances at the start of every pass.
	store repository.Repository
	// passes are kept in registration order.
	passes []Pass
	// inFlight collapses concurrent passes of the same catalog.
	inFlight singleflight.Group
	// sequence numbers passes so late answers cannot overwrite newer ones.
	sequence atomic.Uint64
}

// NewScheduler creates a scheduler over the provided passes.
func NewScheduler(store repository.Repository, passes ...Pass) *Scheduler {
	return &Scheduler{
		store:  store,
		passes: passes,
	}
}

// Providers lists the catalogs the scheduler can refresh.
func (s *Scheduler) Providers() []domain.Platform {
	providers := make([]domain.Platform, 0, len(s.passes))
	for _, pass := range s.passes {
		providers = append(providers, pass.Provider())
	}

	return providers
}

// Refresh runs one pass for platform, or joins the pass already in flight.
func (s *Scheduler) Refresh(ctx context.Context, platform domain.Platform) Report {
	pass := s.find(platform)
	if pass == nil {
		return Report{
			Provider: platform,
			Err:      fmt.Errorf("%w: %q", errUnknownProvider, platform),
		}
	}

	result, _, shared := s.inFlight.Do(string(platform), func() (any, error) {
		return s.run(ctx, pass), nil
	})

	report, _ := result.(Report)

	if shared {
		logger.DebugKV(ctx, "Joined an update pass already in flight", "provider", platform)
	}

	return report
}

// RefreshAll runs a pass for every registered catalog concurrently.
func (s *Scheduler) RefreshAll(ctx context.Context) []Report {
	reports := make([]Report, len(s.passes))

	var wg sync.WaitGroup

	for i, pass := range s.passes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			reports[i] = s.Refresh(ctx, pass.Provider())
		}()
	}

	wg.Wait()

	return reports
}

func (s *Scheduler) run(ctx context.Context, pass Pass) Report {
	ctx = logger.WithKV(ctx, "provider", pass.Provider())

	logger.Info(ctx, "Checking for updates")

	instances, err := s.store.List(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list instances", "error", err)

		return Report{
			Provider: pass.Provider(),
			Err:      fmt.Errorf("list instances: %w", err),
		}
	}

	report := pass.Run(ctx, instances, s.sequence.Add(1))

	logger.InfoKV(ctx, "Update check finished",
		"eligible", report.Eligible,
		"published", report.Published,
		"transient", report.Transient,
		"disabled", report.Disabled,
		"missing", report.Missing)

	return report
}

func (s *Scheduler) find(platform domain.Platform) Pass {
	for _, pass := range s.passes {
		if pass.Provider() == platform {
			return pass
		}
	}

	return nil
}

// transientOnly downgrades any failure to transient.
func transientOnly(err error) error {
	if provider.KindOf(err) == provider.KindTransient {
		return err
	}

	return provider.Transient(err)
}
