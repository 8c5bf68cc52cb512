package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
)

// TestFileRepository_MissingFolder verifies List returns nothing for a missing root.
func TestFileRepository_MissingFolder(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing"))

	instances, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, instances)

	_, err = repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_SaveListGet ensures saved instances are listed in id order and reloaded intact.
func TestFileRepository_SaveListGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := NewFileRepository(dir)
	ctx := context.Background()

	technic := &domain.Instance{
		ID:              "b-tekkit",
		Name:            "Tekkit",
		Platform:        domain.PlatformTechnic,
		Version:         "1.0",
		CheckForUpdates: true,
		Technic:         &domain.TechnicRef{Slug: "tekkit", Solder: true},
		RuntimePath:     "/opt/runtimes/17",
	}
	curse := &domain.Instance{
		ID:         "a-atm",
		Platform:   domain.PlatformCurseForge,
		CurseForge: &domain.CurseForgeRef{ProjectID: 42, FileID: 7},
	}

	require.NoError(t, repo.Save(ctx, technic))
	require.NoError(t, repo.Save(ctx, curse))

	// Stray files and folders without a document are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0o755))

	instances, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	require.Equal(t, curse, instances[0])
	require.Equal(t, technic, instances[1])

	got, err := repo.Get(ctx, "b-tekkit")
	require.NoError(t, err)
	require.Equal(t, technic, got)

	// Overwrite.
	technic.CheckForUpdates = false
	require.NoError(t, repo.Save(ctx, technic))

	got, err = repo.Get(ctx, "b-tekkit")
	require.NoError(t, err)
	require.False(t, got.CheckForUpdates)
}

// TestFileRepository_InvalidID rejects ids that escape the root folder.
func TestFileRepository_InvalidID(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		require.ErrorIs(t, repo.Save(context.Background(), &domain.Instance{ID: id}), ErrInvalidID)
	}

	require.ErrorIs(t, repo.Save(context.Background(), nil), ErrInvalidID)
}

// TestFileRepository_SaveKeepsHostKeys ensures keys written by the launcher survive a flag flip
// and that a cleared override is dropped from the document.
func TestFileRepository_SaveKeepsHostKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tekkit"), 0o755))

	document := `name: Tekkit
platform: technic
check_for_updates: true
memory: 6144
technic:
  slug: tekkit
  icon: tekkit.png
runtime_path: /opt/runtimes/17
`
	path := filepath.Join(dir, "tekkit", Filename)
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	repo := NewFileRepository(dir)
	ctx := context.Background()

	inst, err := repo.Get(ctx, "tekkit")
	require.NoError(t, err)

	inst.CheckForUpdates = false
	inst.RuntimePath = ""
	require.NoError(t, repo.Save(ctx, inst))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(contents, &raw))
	require.Equal(t, 6144, raw["memory"])
	require.Equal(t, false, raw["check_for_updates"])
	require.NotContains(t, raw, "runtime_path")
	require.Equal(t, "tekkit.png", raw["technic"].(map[string]any)["icon"])

	got, err := repo.Get(ctx, "tekkit")
	require.NoError(t, err)
	require.Equal(t, inst, got)
}
