package packager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/service/runtime"
)

// DefaultManifestFilename is the manifest written when no path is provided.
const DefaultManifestFilename = "runtimes.json"

// Options contains inputs for the packager entry point.
type Options struct {
	// ArchivePath is the local runtime archive.
	ArchivePath string
	// ManifestPath is the manifest to create or update.
	ManifestPath string
	// Version names the folder the runtime is extracted into.
	Version string
	// URLPrefix is prepended to the archive name to form the manifest URL.
	URLPrefix string
	// OS and Arch select the manifest entry; the current platform when empty.
	OS   string
	Arch string
}

var (
	errNoArchive = errors.New("archive path is required")
	errNoVersion = errors.New("runtime version is required")
)

// Run computes the archive entry and writes it into the manifest.
func Run(ctx context.Context, opts *Options) (*runtime.Descriptor, error) {
	ctx = logger.WithName(ctx, "packwatch-packager")

	if opts.ArchivePath == "" {
		return nil, errNoArchive
	}

	if strings.TrimSpace(opts.Version) == "" {
		return nil, errNoVersion
	}

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = DefaultManifestFilename
	}

	platform := runtime.CurrentPlatform()
	if opts.OS != "" {
		platform.OS = opts.OS
	}

	if opts.Arch != "" {
		platform.Arch = opts.Arch
	}

	logger.InfoKV(ctx, "Calculating archive checksum", "archive", opts.ArchivePath)

	sum, err := runtime.Checksum(opts.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("checksum archive: %w", err)
	}

	descriptor := runtime.Descriptor{
		Version: strings.TrimSpace(opts.Version),
		URL:     path.Join(opts.URLPrefix, filepath.Base(opts.ArchivePath)),
		SHA1:    sum.SHA1,
		Size:    sum.Size,
	}

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	manifest.Set(platform, descriptor)

	if err = saveManifest(manifestPath, manifest); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Runtime manifest updated",
		"manifest", manifestPath,
		"platform", platform.String(),
		"version", descriptor.Version,
		"sha1", descriptor.SHA1,
		"size", descriptor.Size)

	logger.Infof(ctx, "Upload %s to <download server>/%s and %s to <download server>/%s",
		opts.ArchivePath, descriptor.URL, manifestPath, runtime.ManifestPath)

	return &descriptor, nil
}

func loadManifest(manifestPath string) (runtime.Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(manifestPath))
	if errors.Is(err, os.ErrNotExist) {
		return runtime.Manifest{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	manifest := runtime.Manifest{}
	if err = json.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return manifest, nil
}

func saveManifest(manifestPath string, manifest runtime.Manifest) error {
	contents, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if dir := filepath.Dir(manifestPath); dir != "." {
		if err = os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create manifest folder: %w", err)
		}
	}

	//nolint:gosec // The manifest is published on a download server.
	if err = os.WriteFile(filepath.Clean(manifestPath), append(contents, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
