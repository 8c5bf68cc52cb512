package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/packwatch/internal/provider"
)

// TestPlatformOf maps Go platform names to manifest names.
func TestPlatformOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, Platform{OS: "windows", Arch: "x64"}, PlatformOf("windows", "amd64"))
	require.Equal(t, Platform{OS: "osx", Arch: "arm64"}, PlatformOf("darwin", "arm64"))
	require.Equal(t, Platform{OS: "linux", Arch: "x86"}, PlatformOf("linux", "386"))
	require.Equal(t, "linux/x64", PlatformOf("linux", "amd64").String())
}

// TestManifest_Select validates descriptors before returning them.
func TestManifest_Select(t *testing.T) {
	t.Parallel()

	manifest := Manifest{}
	manifest.Set(testPlatform, Descriptor{Version: "17", URL: "a.tar.xz", SHA1: "00", Size: 1})
	manifest.Set(Platform{OS: "linux", Arch: "arm64"}, Descriptor{Version: "../17", URL: "a", SHA1: "00", Size: 1})

	descriptor, err := manifest.Select(testPlatform)
	require.NoError(t, err)
	require.Equal(t, "17", descriptor.Version)

	_, err = manifest.Select(Platform{OS: "linux", Arch: "arm64"})
	require.ErrorIs(t, err, errInvalidDescriptor)

	_, err = manifest.Select(Platform{OS: "windows", Arch: "x64"})
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

// TestManifest_StoredCopy verifies a fresh process reuses the stored manifest and
// falls back to it when the download server is gone.
func TestManifest_StoredCopy(t *testing.T) {
	t.Parallel()

	archive := buildTarXZ(t, defaultEntries())
	server := newRuntimeServer(t, archive, descriptorFor(archive))
	f := newFixture(t, server.URL, testPlatform)
	ctx := context.Background()

	_, err := f.provisioner.Provision(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, server.calls.Load())

	stored := filepath.Join(f.provisioner.Root(), ManifestFilename)
	require.FileExists(t, stored)

	reopen := func() *Provisioner {
		return NewProvisioner(Options{
			RuntimesDir:        filepath.Join(f.dir, "runtimes"),
			DefaultRuntimePath: "/usr/lib/jvm/default",
			DownloadServer:     server.URL,
			Platform:           testPlatform,
		}, f.settings, f.instances)
	}

	result, err := reopen().Provision(ctx)
	require.NoError(t, err)
	require.False(t, result.Downloaded)
	require.EqualValues(t, 2, server.calls.Load())

	// An expired copy still serves when the server cannot be reached.
	expired := time.Now().Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(stored, expired, expired))

	server.Close()

	result, err = reopen().Provision(ctx)
	require.NoError(t, err)
	require.Equal(t, testVersion, result.Version)
	require.False(t, result.Downloaded)
}

// TestManifest_NoStoredCopyOffline fails when nothing was ever fetched and the server is down.
func TestManifest_NoStoredCopyOffline(t *testing.T) {
	t.Parallel()

	archive := buildTarXZ(t, defaultEntries())
	server := newRuntimeServer(t, archive, descriptorFor(archive))
	f := newFixture(t, server.URL, testPlatform)

	server.Close()

	_, err := f.provisioner.Provision(context.Background())
	require.ErrorIs(t, err, provider.ErrTransient)
	require.NoFileExists(t, filepath.Join(f.provisioner.Root(), ManifestFilename))
}
