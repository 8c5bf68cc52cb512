package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestUnpack_Zip extracts plain zip archives without an intermediate file.
func TestUnpack_Zip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "jre.zip")
	require.NoError(t, os.WriteFile(archivePath, buildZip(t, map[string]string{
		"release":      "JAVA_VERSION=17",
		"bin/java.exe": "MZ",
	}), 0o600))

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	intermediate, err := unpack(archivePath, dest)
	require.NoError(t, err)
	require.Empty(t, intermediate)
	require.FileExists(t, filepath.Join(dest, "release"))
	require.FileExists(t, filepath.Join(dest, "bin", "java.exe"))
}

// TestUnpack_UnknownFormat rejects archives it cannot read.
func TestUnpack_UnknownFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "jre.rar")
	require.NoError(t, os.WriteFile(archivePath, []byte("rar"), 0o600))

	_, err := unpack(archivePath, dir)
	require.ErrorIs(t, err, errUnknownFormat)
}

// TestWithin covers the path containment rules used by extraction and removal.
func TestWithin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "data", "runtimes")

	require.True(t, within(root, root))
	require.True(t, within(filepath.Join(root, "17", "bin"), root))
	require.False(t, within(filepath.Join(root+"-old", "17"), root))
	require.False(t, within(filepath.Dir(root), root))
	require.False(t, within("", root))
	require.False(t, within(root, ""))
}
