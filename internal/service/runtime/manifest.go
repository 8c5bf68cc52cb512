package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
)

const (
	// ManifestPath is the location of the manifest relative to the download server.
	ManifestPath = "launcher/json/runtimes.json"
	// ManifestFilename is the stored copy of the manifest inside the runtime root.
	ManifestFilename = ".runtimes.json"
)

// Descriptor is one downloadable runtime.
type Descriptor struct {
	// Version names the folder the runtime is extracted into.
	Version string `json:"version" yaml:"version"`
	// URL is the archive path relative to the download server.
	URL string `json:"url" yaml:"url"`
	// SHA1 is the hex-encoded checksum of the archive.
	SHA1 string `json:"sha1" yaml:"sha1"`
	// Size is the exact archive length in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Manifest lists runtimes by operating system, then by architecture.
type Manifest map[string]map[string]Descriptor

var (
	// ErrUnsupportedPlatform is returned when the manifest has no entry for the platform.
	ErrUnsupportedPlatform = errors.New("no runtime available for this platform")

	errInvalidDescriptor = errors.New("invalid runtime descriptor")
)

// Select returns the descriptor of platform.
func (m Manifest) Select(platform Platform) (Descriptor, error) {
	descriptor, ok := m[platform.OS][platform.Arch]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	if err := descriptor.validate(); err != nil {
		return Descriptor{}, err
	}

	return descriptor, nil
}

// Set stores descriptor for platform, creating nested maps as needed.
func (m Manifest) Set(platform Platform, descriptor Descriptor) {
	if m[platform.OS] == nil {
		m[platform.OS] = make(map[string]Descriptor)
	}

	m[platform.OS][platform.Arch] = descriptor
}

func (d Descriptor) validate() error {
	switch {
	case d.Version == "" || strings.ContainsAny(d.Version, `/\`) || d.Version == "." || d.Version == "..":
		return fmt.Errorf("%w: bad version %q", errInvalidDescriptor, d.Version)
	case d.URL == "":
		return fmt.Errorf("%w: empty url", errInvalidDescriptor)
	case d.SHA1 == "":
		return fmt.Errorf("%w: empty sha1", errInvalidDescriptor)
	case d.Size <= 0:
		return fmt.Errorf("%w: size %d", errInvalidDescriptor, d.Size)
	}

	return nil
}

// manifestSource fetches the manifest and keeps it in memory and on disk.
// A copy on disk younger than ttl is served without a request, an older one
// is served when the download server cannot be reached.
type manifestSource struct {
	http  *resty.Client
	cache *expirable.LRU[string, Manifest]
	// path is the on-disk copy of the last fetched manifest.
	path string
	ttl  time.Duration
}

func (s *manifestSource) get(ctx context.Context) (Manifest, error) {
	if manifest, ok := s.cache.Get(ManifestPath); ok {
		return manifest, nil
	}

	stored, modified, storedErr := s.load()
	if storedErr == nil && time.Since(modified) < s.ttl {
		s.cache.Add(ManifestPath, stored)

		return stored, nil
	}

	manifest, err := s.fetch(ctx)
	if err != nil {
		if storedErr != nil || provider.KindOf(err) == provider.KindGone || ctx.Err() != nil {
			return nil, err
		}

		logger.WarnKV(ctx, "Download server unreachable, using the stored runtime manifest",
			"error", err, "stored_at", modified)

		return stored, nil
	}

	if err = s.store(manifest); err != nil {
		logger.WarnKV(ctx, "Failed to store the runtime manifest", "error", err)
	}

	s.cache.Add(ManifestPath, manifest)

	return manifest, nil
}

func (s *manifestSource) fetch(ctx context.Context) (Manifest, error) {
	var manifest Manifest

	response, err := s.http.R().
		SetContext(ctx).
		SetResult(&manifest).
		ForceContentType("application/json").
		Get(ManifestPath)
	if err = provider.Do(response, err); err != nil {
		return nil, fmt.Errorf("fetch runtime manifest: %w", err)
	}

	if len(manifest) == 0 {
		return nil, fmt.Errorf("fetch runtime manifest: %w", ErrUnsupportedPlatform)
	}

	return manifest, nil
}

// load reads the stored manifest and its modification time.
func (s *manifestSource) load() (Manifest, time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}

	contents, err := os.ReadFile(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var manifest Manifest
	if err = json.Unmarshal(contents, &manifest); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode stored runtime manifest: %w", err)
	}

	if len(manifest) == 0 {
		return nil, time.Time{}, ErrUnsupportedPlatform
	}

	return manifest, info.ModTime(), nil
}

func (s *manifestSource) store(manifest Manifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode runtime manifest: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(s.path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create runtime folder: %w", err)
	}

	staging := s.path + partSuffix
	if err = os.WriteFile(staging, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write runtime manifest: %w", err)
	}

	if err = os.Rename(staging, s.path); err != nil {
		return fmt.Errorf("replace runtime manifest: %w", err)
	}

	return nil
}
