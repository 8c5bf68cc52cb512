package checker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/provider/curseforge"
	"github.com/oshokin/packwatch/internal/provider/technic"
	repository "github.com/oshokin/packwatch/internal/repository/instance"
)

var errBoom = errors.New("boom")

// memoryStore keeps instances in memory and counts saves per id.
type memoryStore struct {
	mu        sync.Mutex
	instances map[string]*domain.Instance
	saves     map[string]int
	listErr   error
}

func newMemoryStore(instances ...*domain.Instance) *memoryStore {
	store := &memoryStore{
		instances: make(map[string]*domain.Instance, len(instances)),
		saves:     make(map[string]int),
	}

	for _, inst := range instances {
		store.instances[inst.ID] = inst.Clone()
	}

	return store
}

func (s *memoryStore) List(_ context.Context) ([]*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	result := make([]*domain.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		result = append(result, inst.Clone())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return inst.Clone(), nil
}

// update changes a stored instance in place, as another writer would.
func (s *memoryStore) update(id string, change func(*domain.Instance)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change(s.instances[id])
}

func (s *memoryStore) Save(_ context.Context, inst *domain.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[inst.ID] = inst.Clone()
	s.saves[inst.ID]++

	return nil
}

func (s *memoryStore) get(id string) *domain.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.instances[id].Clone()
}

func (s *memoryStore) saveCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves[id]
}

func (s *memoryStore) totalSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, count := range s.saves {
		total += count
	}

	return total
}

// fakeCurseForge answers GetProjects from a fixed table.
type fakeCurseForge struct {
	projects map[int]*curseforge.Project
	err      error
	calls    atomic.Int32

	mu       sync.Mutex
	received [][]int
}

func (f *fakeCurseForge) GetProjects(_ context.Context, ids []int) (map[int]*curseforge.Project, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.received = append(f.received, append([]int(nil), ids...))
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	result := make(map[int]*curseforge.Project, len(ids))

	for _, id := range ids {
		if project, ok := f.projects[id]; ok {
			result[id] = project
		}
	}

	return result, nil
}

// fakeTechnic answers per slug through the provided functions.
type fakeTechnic struct {
	modpack func(slug string) (*technic.Modpack, error)
	solder  func(solderURL, name string) (*technic.SolderModpack, error)
	calls   atomic.Int32
}

func (f *fakeTechnic) GetModpack(_ context.Context, slug string) (*technic.Modpack, error) {
	f.calls.Add(1)

	return f.modpack(slug)
}

func (f *fakeTechnic) GetSolderModpack(_ context.Context, solderURL, name string) (*technic.SolderModpack, error) {
	if f.solder == nil {
		return nil, errBoom
	}

	return f.solder(solderURL, name)
}

func technicInstance(id, slug string) *domain.Instance {
	return &domain.Instance{
		ID:              id,
		Name:            id,
		Platform:        domain.PlatformTechnic,
		Version:         "1.0.0",
		CheckForUpdates: true,
		Technic:         &domain.TechnicRef{Slug: slug},
	}
}

func curseForgeInstance(id string, projectID int) *domain.Instance {
	return &domain.Instance{
		ID:              id,
		Name:            id,
		Platform:        domain.PlatformCurseForge,
		Version:         "1.0.0",
		CheckForUpdates: true,
		CurseForge:      &domain.CurseForgeRef{ProjectID: projectID, FileID: 1},
	}
}
