package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/repository/yamldoc"
)

// Settings are the launcher-wide values packwatch reads and writes.
type Settings struct {
	// RuntimePath is the runtime used by instances without an override.
	RuntimePath string `yaml:"runtime_path"`
}

// Repository defines persistence operations for launcher settings.
type Repository interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, settings *Settings) error
}

// ErrNotFound is returned when the settings file does not exist yet.
var ErrNotFound = errors.New("settings not found")

// FileRepository persists launcher settings to a YAML file.
type FileRepository struct {
	// path is the filesystem location of the settings file.
	path string
	// mu protects concurrent access to the settings file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the settings from disk.
func (r *FileRepository) Load(_ context.Context) (*Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var settings Settings
	if err = yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}

	return &settings, nil
}

// ownedKeys are the settings keys packwatch writes. Other keys belong to the launcher.
var ownedKeys = []string{"runtime_path"}

// Save writes the settings to disk, keeping every key packwatch does not own.
func (r *FileRepository) Save(_ context.Context, settings *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read settings file: %w", err)
	}

	data, err := yamldoc.Merge(existing, settings, ownedKeys...)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err = os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create settings folder: %w", err)
		}
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// LoadOrDefault returns stored settings, or empty ones when nothing was saved yet.
func LoadOrDefault(ctx context.Context, repo Repository) (*Settings, error) {
	settings, err := repo.Load(ctx)

	switch {
	case err == nil:
		return settings, nil
	case errors.Is(err, ErrNotFound):
		return new(Settings), nil
	default:
		return nil, err
	}
}
