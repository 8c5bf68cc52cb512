package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/packwatch/internal/api/grpc/health"
	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
	"github.com/oshokin/packwatch/internal/provider/curseforge"
	"github.com/oshokin/packwatch/internal/provider/technic"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

// Options controls the checker process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Once runs a single pass per catalog and exits.
	Once bool
	// Interval overrides the configured pause between passes.
	Interval time.Duration
	// HealthAddress overrides the configured health endpoint address.
	HealthAddress string
	// Output receives the freshness table, stdout when nil.
	Output io.Writer
}

// errNoProviders is returned when every catalog is disabled.
var errNoProviders = errors.New("every catalog is disabled in settings")

// Run refreshes the caches, prints the freshness table and repeats on an
// interval until ctx is canceled, or returns after one round with Once.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "packwatch-checker")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	interval := cfg.CheckInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	healthAddress := cfg.HealthAddress
	if opts.HealthAddress != "" {
		healthAddress = opts.HealthAddress
	}

	store := repository.NewFileRepository(cfg.InstancesDir)
	caches := NewCaches()

	scheduler, err := newScheduler(cfg, store, caches)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var healthServer *health.Server

	group, groupCtx := errgroup.WithContext(ctx)

	if healthAddress != "" && !opts.Once {
		healthServer = health.NewServer()

		group.Go(func() error {
			return healthServer.Serve(groupCtx, healthAddress)
		})
	}

	group.Go(func() error {
		// Stops the health endpoint once the loop is over.
		defer cancel()

		return loop(groupCtx, &loopState{
			scheduler: scheduler,
			store:     store,
			caches:    caches,
			health:    healthServer,
			output:    output,
			interval:  interval,
			once:      opts.Once,
		})
	})

	return group.Wait()
}

type loopState struct {
	scheduler *Scheduler
	store     repository.Repository
	caches    *Caches
	health    *health.Server
	output    io.Writer
	interval  time.Duration
	once      bool
}

func loop(ctx context.Context, state *loopState) error {
	if err := round(ctx, state); err != nil || state.once {
		return err
	}

	logger.InfoKV(ctx, "Waiting for the next update check", "interval", state.interval.String())

	ticker := time.NewTicker(state.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			if err := round(ctx, state); err != nil {
				return err
			}
		}
	}
}

// round refreshes every catalog and prints the table.
func round(ctx context.Context, state *loopState) error {
	for _, report := range state.scheduler.RefreshAll(ctx) {
		if state.health != nil {
			state.health.SetProviderStatus(string(report.Provider), report.Healthy())
		}
	}

	instances, err := state.store.List(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list instances", "error", err)
		return nil
	}

	return WriteStatus(state.output, state.caches.Statuses(instances))
}

func newScheduler(cfg *config.Config, store repository.Repository, caches *Caches) (*Scheduler, error) {
	passes := make([]Pass, 0, 2)

	if cfg.CurseForge.Enabled {
		client := curseforge.NewClient(cfg.CurseForge.APIURL, cfg.CurseForge.APIKey, provider.WithTimeout(cfg.Timeout))
		passes = append(passes, NewBatchPass(NewCurseForgeSource(client), caches.CurseForge, store))
	}

	if cfg.Technic.Enabled {
		client := technic.NewClient(cfg.Technic.APIURL, cfg.Technic.Build, provider.WithTimeout(cfg.Timeout))
		passes = append(passes, NewEntityPass(NewTechnicSource(client), caches.Technic, store, cfg.Concurrency))
	}

	if len(passes) == 0 {
		return nil, errNoProviders
	}

	return NewScheduler(store, passes...), nil
}
