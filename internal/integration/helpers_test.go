package integration

import (
	"archive/tar"
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// reservePort returns a free local address for servers started by the code under test.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// runtimeArchive builds a tar.xz runtime bundle holding the release marker.
func runtimeArchive(t *testing.T) []byte {
	t.Helper()

	files := map[string]string{
		"release":  "JAVA_VERSION=\"21.0.2\"\n",
		"bin/java": "#!/bin/sh\n",
	}

	var tarball bytes.Buffer

	writer := tar.NewWriter(&tarball)

	for _, name := range []string{"bin/java", "release"} {
		require.NoError(t, writer.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}))

		_, err := writer.Write([]byte(files[name]))
		require.NoError(t, err)
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
