package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/flock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/singleflight"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
	instancerepo "github.com/oshokin/packwatch/internal/repository/instance"
	settingsrepo "github.com/oshokin/packwatch/internal/repository/settings"
)

// MarkerFilename is shipped inside every runtime archive. Its presence in
// <root>/<version> means the version is fully extracted.
const MarkerFilename = "release"

const (
	// lockSuffix names the cross-process lock file placed next to the root.
	lockSuffix = ".lock"
	// lockRetryDelay is the pause between attempts to take the file lock.
	lockRetryDelay = 200 * time.Millisecond
	// stagingDirname holds partial extractions inside the root.
	stagingDirname = ".tmp"
)

var errLockNotAcquired = errors.New("runtime folder is locked by another process")

// Options configures a Provisioner.
type Options struct {
	// RuntimesDir is the runtime root.
	RuntimesDir string
	// DefaultRuntimePath is restored as the global runtime path on removal.
	DefaultRuntimePath string
	// DownloadServer serves the manifest and the archives.
	DownloadServer string
	// ManifestTTL is how long the manifest is served without a request.
	ManifestTTL time.Duration
	// Timeout bounds the manifest request.
	Timeout time.Duration
	// DownloadTimeout bounds the archive download.
	DownloadTimeout time.Duration
	// Platform overrides the detected platform when set.
	Platform Platform
}

// OptionsFromConfig builds provisioner options from settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RuntimesDir:        cfg.RuntimesDir,
		DefaultRuntimePath: cfg.DefaultRuntimePath,
		DownloadServer:     cfg.DownloadServer,
		ManifestTTL:        cfg.ManifestTTL,
		Timeout:            cfg.Timeout,
		DownloadTimeout:    cfg.DownloadTimeout,
	}
}

// Result describes a provisioned runtime.
type Result struct {
	// Version is the provisioned runtime version.
	Version string
	// Path is the folder the global runtime path now points to.
	Path string
	// Downloaded is false when an existing extraction was reused.
	Downloaded bool
}

// Provisioner installs and removes the runtime bundle.
type Provisioner struct {
	root        string
	defaultPath string
	platform    Platform

	manifests *manifestSource
	download  *resty.Client

	settings  settingsrepo.Repository
	instances instancerepo.Repository

	// mu serializes provisioning and removal within the process.
	mu sync.Mutex
	// lock serializes them across processes.
	lock *flock.Flock
	// inFlight lets concurrent callers share one attempt.
	inFlight singleflight.Group
	// processes lists running processes for the busy warning.
	processes func() ([]ps.Process, error)
}

// NewProvisioner creates a provisioner writing through the provided repositories.
func NewProvisioner(opts Options, settings settingsrepo.Repository, instances instancerepo.Repository) *Provisioner {
	root, err := filepath.Abs(opts.RuntimesDir)
	if err != nil {
		root = filepath.Clean(opts.RuntimesDir)
	}

	platform := opts.Platform
	if platform == (Platform{}) {
		platform = CurrentPlatform()
	}

	ttl := opts.ManifestTTL
	if ttl <= 0 {
		ttl = config.DefaultManifestTTL
	}

	return &Provisioner{
		root:        root,
		defaultPath: opts.DefaultRuntimePath,
		platform:    platform,
		manifests: &manifestSource{
			http:  provider.NewHTTPClient(opts.DownloadServer, provider.WithTimeout(opts.Timeout)),
			cache: expirable.NewLRU[string, Manifest](1, nil, ttl),
			path:  filepath.Join(root, ManifestFilename),
			ttl:   ttl,
		},
		download: provider.NewHTTPClient(opts.DownloadServer,
			provider.WithTimeout(opts.DownloadTimeout),
			provider.WithHeader("Accept", "*/*")),
		settings:  settings,
		instances: instances,
		lock:      flock.New(root + lockSuffix),
		processes: ps.Processes,
	}
}

// Root returns the absolute runtime root.
func (p *Provisioner) Root() string {
	return p.root
}

// Provision makes sure the runtime of the current platform is extracted and
// points the global runtime path at it. Concurrent calls share one attempt.
func (p *Provisioner) Provision(ctx context.Context) (*Result, error) {
	ctx = logger.WithKV(ctx, "platform", p.platform.String())

	value, err, shared := p.inFlight.Do("provision", func() (any, error) {
		return p.withLock(ctx, func() (any, error) {
			return p.provision(ctx)
		})
	})
	if shared {
		logger.Debug(ctx, "Joined a runtime provisioning already in flight")
	}

	if err != nil {
		logger.ErrorKV(ctx, "Runtime provisioning failed", "error", err)
		return nil, err
	}

	result, _ := value.(*Result)

	return result, nil
}

// Remove deletes the runtime root and rolls back every setting pointing into it.
func (p *Provisioner) Remove(ctx context.Context) error {
	_, err, _ := p.inFlight.Do("remove", func() (any, error) {
		return p.withLock(ctx, func() (any, error) {
			return nil, p.remove(ctx)
		})
	})
	if err != nil {
		logger.ErrorKV(ctx, "Runtime removal failed", "error", err)
	}

	return err
}

func (p *Provisioner) withLock(ctx context.Context, fn func() (any, error)) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.root), config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create runtime parent folder: %w", err)
	}

	locked, err := p.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock runtime folder: %w", err)
	}

	if !locked {
		return nil, errLockNotAcquired
	}

	defer func() {
		if unlockErr := p.lock.Unlock(); unlockErr != nil {
			logger.WarnKV(ctx, "Failed to release runtime lock", "error", unlockErr)
		}
	}()

	return fn()
}

func (p *Provisioner) provision(ctx context.Context) (*Result, error) {
	manifest, err := p.manifests.get(ctx)
	if err != nil {
		return nil, err
	}

	descriptor, err := manifest.Select(p.platform)
	if err != nil {
		return nil, err
	}

	versionDir := filepath.Join(p.root, descriptor.Version)
	ctx = logger.WithFields(ctx, "version", descriptor.Version, "path", versionDir)

	if fileExists(filepath.Join(versionDir, MarkerFilename)) {
		logger.Info(ctx, "Runtime already provisioned")

		if err = p.rebind(ctx, versionDir); err != nil {
			return nil, err
		}

		return &Result{Version: descriptor.Version, Path: versionDir}, nil
	}

	if err = os.MkdirAll(versionDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create runtime folder: %w", err)
	}

	archivePath, err := p.fetchArchive(ctx, descriptor, versionDir)
	if err != nil {
		return nil, err
	}

	if err = p.install(ctx, archivePath, versionDir); err != nil {
		return nil, err
	}

	if err = p.rebind(ctx, versionDir); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Runtime provisioned")

	return &Result{Version: descriptor.Version, Path: versionDir, Downloaded: true}, nil
}

// rebind points the global runtime path at dir.
func (p *Provisioner) rebind(ctx context.Context, dir string) error {
	current, err := settingsrepo.LoadOrDefault(ctx, p.settings)
	if err != nil {
		return fmt.Errorf("load launcher settings: %w", err)
	}

	current.RuntimePath = dir

	if err = p.settings.Save(ctx, current); err != nil {
		return fmt.Errorf("save launcher settings: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
