package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/packwatch/internal/logger"
	settingsrepo "github.com/oshokin/packwatch/internal/repository/settings"
)

// ErrRemove is returned when the runtime root cannot be deleted.
var ErrRemove = errors.New("runtime removal failed")

func (p *Provisioner) remove(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "path", p.root)

	p.warnBusy(ctx)

	logger.Info(ctx, "Removing runtimes")

	if err := os.RemoveAll(p.root); err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}

	// Overrides are cleared even when the global path cannot be restored,
	// the folder they point to no longer exists.
	return errors.Join(p.restoreDefault(ctx), p.cascade(ctx))
}

func (p *Provisioner) restoreDefault(ctx context.Context) error {
	current, err := settingsrepo.LoadOrDefault(ctx, p.settings)
	if err != nil {
		return fmt.Errorf("load launcher settings: %w", err)
	}

	current.RuntimePath = p.defaultPath

	if err = p.settings.Save(ctx, current); err != nil {
		return fmt.Errorf("save launcher settings: %w", err)
	}

	logger.InfoKV(ctx, "Restored default runtime path", "runtime_path", p.defaultPath)

	return nil
}

// cascade clears every instance override pointing into the removed root.
// Every instance is attempted even when some saves fail.
func (p *Provisioner) cascade(ctx context.Context) error {
	instances, err := p.instances.List(ctx)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	var errs []error

	for _, inst := range instances {
		if !within(absolute(inst.RuntimePath), p.root) {
			continue
		}

		updated := inst.Clone()
		updated.RuntimePath = ""

		if err = p.instances.Save(ctx, updated); err != nil {
			errs = append(errs, fmt.Errorf("clear runtime override of %s: %w", inst.ID, err))
			continue
		}

		logger.InfoKV(ctx, "Cleared instance runtime override", "instance", inst.ID)
	}

	return errors.Join(errs...)
}

// warnBusy logs processes started from a runtime that is about to be removed.
func (p *Provisioner) warnBusy(ctx context.Context) {
	binaries, err := filepath.Glob(filepath.Join(p.root, "*", "bin", "*"))
	if err != nil || len(binaries) == 0 {
		return
	}

	names := make(map[string]struct{}, len(binaries))
	for _, binary := range binaries {
		names[strings.ToLower(filepath.Base(binary))] = struct{}{}
	}

	processes, err := p.processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	for _, process := range processes {
		if _, ok := names[strings.ToLower(process.Executable())]; ok {
			logger.WarnKV(ctx, "A running process may still use the runtime",
				"pid", process.Pid(), "executable", process.Executable())
		}
	}
}

func absolute(path string) string {
	if path == "" {
		return ""
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}
