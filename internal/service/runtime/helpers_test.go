package runtime

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"crypto/sha1" //nolint:gosec // Matches the manifest format.
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	instancerepo "github.com/oshokin/packwatch/internal/repository/instance"
	settingsrepo "github.com/oshokin/packwatch/internal/repository/settings"
)

const (
	testVersion = "17.0.8"
	testArchive = "runtimes/jre-17.tar.xz"
)

var testPlatform = Platform{OS: "linux", Arch: "x64"}

type archiveEntry struct {
	name     string
	body     string
	mode     int64
	typeflag byte
	linkname string
}

func defaultEntries() []archiveEntry {
	return []archiveEntry{
		{name: "bin/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "bin/java", body: "#!/bin/sh\n", mode: 0o755},
		{name: "lib/modules", body: "modules"},
		{name: "release", body: "JAVA_VERSION=\"17.0.8\"\n"},
	}
}

func buildTarXZ(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var tarball bytes.Buffer

	writer := tar.NewWriter(&tarball)

	for _, entry := range entries {
		typeflag := entry.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}

		mode := entry.mode
		if mode == 0 {
			mode = 0o644
		}

		header := &tar.Header{
			Name:     entry.name,
			Mode:     mode,
			Typeflag: typeflag,
			Linkname: entry.linkname,
		}

		if typeflag == tar.TypeReg {
			header.Size = int64(len(entry.body))
		}

		require.NoError(t, writer.WriteHeader(header))

		if typeflag == tar.TypeReg {
			_, err := writer.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, writer.Close())

	var compressed bytes.Buffer

	xzWriter, err := xz.NewWriter(&compressed)
	require.NoError(t, err)

	_, err = xzWriter.Write(tarball.Bytes())
	require.NoError(t, err)
	require.NoError(t, xzWriter.Close())

	return compressed.Bytes()
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buffer bytes.Buffer

	writer := zip.NewWriter(&buffer)

	for name, body := range files {
		file, err := writer.Create(name)
		require.NoError(t, err)

		_, err = file.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buffer.Bytes()
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // See import.
	return hex.EncodeToString(sum[:])
}

// runtimeServer serves a manifest and one archive, counting every request.
type runtimeServer struct {
	*httptest.Server

	calls    atomic.Int32
	archive  []byte
	manifest Manifest
}

func newRuntimeServer(t *testing.T, archive []byte, descriptor Descriptor) *runtimeServer {
	t.Helper()

	server := &runtimeServer{
		archive:  archive,
		manifest: Manifest{},
	}
	server.manifest.Set(testPlatform, descriptor)

	mux := http.NewServeMux()
	mux.HandleFunc("/"+ManifestPath, func(w http.ResponseWriter, _ *http.Request) {
		server.calls.Add(1)

		w.Header().Set("Content-Type", "text/plain")
		_ = json.NewEncoder(w).Encode(server.manifest)
	})
	mux.HandleFunc("/"+testArchive, func(w http.ResponseWriter, _ *http.Request) {
		server.calls.Add(1)

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(server.archive)
	})

	server.Server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func descriptorFor(archive []byte) Descriptor {
	return Descriptor{
		Version: testVersion,
		URL:     testArchive,
		SHA1:    sha1Hex(archive),
		Size:    int64(len(archive)),
	}
}

type fixture struct {
	dir         string
	provisioner *Provisioner
	settings    *settingsrepo.FileRepository
	instances   *instancerepo.FileRepository
}

func newFixture(t *testing.T, serverURL string, platform Platform) *fixture {
	t.Helper()

	dir := t.TempDir()
	settings := settingsrepo.NewFileRepository(filepath.Join(dir, "launcher-settings.yaml"))
	instances := instancerepo.NewFileRepository(filepath.Join(dir, "instances"))

	provisioner := NewProvisioner(Options{
		RuntimesDir:        filepath.Join(dir, "runtimes"),
		DefaultRuntimePath: "/usr/lib/jvm/default",
		DownloadServer:     serverURL,
		Platform:           platform,
	}, settings, instances)

	return &fixture{
		dir:         dir,
		provisioner: provisioner,
		settings:    settings,
		instances:   instances,
	}
}
