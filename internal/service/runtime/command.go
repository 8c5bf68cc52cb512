package runtime

import (
	"context"
	"fmt"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	instancerepo "github.com/oshokin/packwatch/internal/repository/instance"
	settingsrepo "github.com/oshokin/packwatch/internal/repository/settings"
)

// CommandOptions controls the packwatch-runtime install and remove commands.
type CommandOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
}

// Install provisions the runtime of the current platform.
func Install(ctx context.Context, opts *CommandOptions) (*Result, error) {
	ctx = logger.WithName(ctx, "packwatch-runtime")

	provisioner, err := newFromConfig(opts)
	if err != nil {
		return nil, err
	}

	return provisioner.Provision(ctx)
}

// Uninstall removes every provisioned runtime.
func Uninstall(ctx context.Context, opts *CommandOptions) error {
	ctx = logger.WithName(ctx, "packwatch-runtime")

	provisioner, err := newFromConfig(opts)
	if err != nil {
		return err
	}

	return provisioner.Remove(ctx)
}

func newFromConfig(opts *CommandOptions) (*Provisioner, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return NewProvisioner(
		OptionsFromConfig(cfg),
		settingsrepo.NewFileRepository(cfg.LauncherSettingsFile),
		instancerepo.NewFileRepository(cfg.InstancesDir),
	), nil
}
