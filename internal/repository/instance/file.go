package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/packwatch/internal/config"
	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/repository/yamldoc"
)

// Filename is the name of the instance document inside its folder.
const Filename = "instance.yaml"

// ownedKeys are the top-level keys encoded from domain.Instance.
var ownedKeys = []string{
	"id", "name", "platform", "version", "check_for_updates", "curseforge", "technic", "runtime_path",
}

// Repository defines persistence operations for instances.
type Repository interface {
	List(ctx context.Context) ([]*domain.Instance, error)
	Get(ctx context.Context, id string) (*domain.Instance, error)
	Save(ctx context.Context, instance *domain.Instance) error
}

var (
	// ErrNotFound is returned when an instance document does not exist.
	ErrNotFound = errors.New("instance not found")
	// ErrInvalidID is returned for ids that cannot be used as a folder name.
	ErrInvalidID = errors.New("invalid instance id")
)

// FileRepository persists instances as YAML files on disk.
type FileRepository struct {
	// dir holds one folder per instance.
	dir string
	// mu serializes writers and readers of the instance documents.
	mu sync.Mutex
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// List loads every instance, ordered by id. A missing root folder yields no instances.
func (r *FileRepository) List(_ context.Context) ([]*domain.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read instances folder: %w", err)
	}

	instances := make([]*domain.Instance, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		instance, err := r.read(entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].ID < instances[j].ID
	})

	return instances, nil
}

// Get loads a single instance by id.
func (r *FileRepository) Get(_ context.Context, id string) (*domain.Instance, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(id)
}

// Save writes the instance document, creating its folder when needed.
// Keys the host application keeps in the document are preserved.
func (r *FileRepository) Save(_ context.Context, instance *domain.Instance) error {
	if instance == nil {
		return fmt.Errorf("%w: nil instance", ErrInvalidID)
	}

	if err := validateID(instance.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	folder := filepath.Join(r.dir, instance.ID)
	target := filepath.Join(folder, Filename)

	existing, err := os.ReadFile(target)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read instance %s: %w", instance.ID, err)
	}

	data, err := yamldoc.Merge(existing, instance, ownedKeys...)
	if err != nil {
		return fmt.Errorf("encode instance %s: %w", instance.ID, err)
	}

	if err = os.MkdirAll(folder, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create instance folder: %w", err)
	}

	// Write to a sibling file first so readers never see a torn document.
	staging := target + ".tmp"

	if err = os.WriteFile(staging, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write instance %s: %w", instance.ID, err)
	}

	if err = os.Rename(staging, target); err != nil {
		return fmt.Errorf("replace instance %s: %w", instance.ID, err)
	}

	return nil
}

// read must be called with mu held.
func (r *FileRepository) read(id string) (*domain.Instance, error) {
	contents, err := os.ReadFile(filepath.Join(r.dir, id, Filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read instance %s: %w", id, err)
	}

	var instance domain.Instance
	if err = yaml.Unmarshal(contents, &instance); err != nil {
		return nil, fmt.Errorf("decode instance %s: %w", id, err)
	}

	// The folder name is authoritative.
	instance.ID = id

	return &instance, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}
