package checker

import (
	"context"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/freshness"
	"github.com/oshokin/packwatch/internal/provider/curseforge"
	"github.com/oshokin/packwatch/internal/provider/technic"
)

// CurseForgeAPI is the part of the CurseForge client the checker uses.
type CurseForgeAPI interface {
	GetProjects(ctx context.Context, ids []int) (map[int]*curseforge.Project, error)
}

// TechnicAPI is the part of the Technic client the checker uses.
type TechnicAPI interface {
	GetModpack(ctx context.Context, slug string) (*technic.Modpack, error)
	GetSolderModpack(ctx context.Context, solderURL, modpack string) (*technic.SolderModpack, error)
}

type curseForgeSource struct {
	api CurseForgeAPI
}

// NewCurseForgeSource adapts a CurseForge client to a batch source keyed by project id.
func NewCurseForgeSource(api CurseForgeAPI) BatchSource[int, *curseforge.File] {
	return &curseForgeSource{api: api}
}

func (s *curseForgeSource) Provider() domain.Platform {
	return domain.PlatformCurseForge
}

func (s *curseForgeSource) Key(inst *domain.Instance) (int, bool) {
	return inst.CurseForgeProjectID()
}

func (s *curseForgeSource) FetchMany(ctx context.Context, ids []int) (map[int]freshness.Record[*curseforge.File], error) {
	projects, err := s.api.GetProjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make(map[int]freshness.Record[*curseforge.File], len(projects))

	for id, project := range projects {
		if project == nil {
			continue
		}

		latest := project.LatestFile()
		if latest == nil {
			records[id] = freshness.Empty[*curseforge.File]()
			continue
		}

		records[id] = freshness.Of(latest)
	}

	return records, nil
}

type technicSource struct {
	api TechnicAPI
}

// NewTechnicSource adapts a Technic client to a per-entity source.
func NewTechnicSource(api TechnicAPI) EntitySource[*technic.Latest] {
	return &technicSource{api: api}
}

func (s *technicSource) Provider() domain.Platform {
	return domain.PlatformTechnic
}

func (s *technicSource) Eligible(inst *domain.Instance) bool {
	_, ok := inst.TechnicSlug()
	return ok
}

func (s *technicSource) FetchOne(ctx context.Context, inst *domain.Instance) (freshness.Record[*technic.Latest], error) {
	slug, _ := inst.TechnicSlug()

	pack, err := s.api.GetModpack(ctx, slug)
	if err != nil {
		return freshness.Empty[*technic.Latest](), err
	}

	latest := &technic.Latest{Modpack: pack}

	if inst.IsTechnicSolder() && pack.Solder != "" {
		solder, err := s.api.GetSolderModpack(ctx, pack.Solder, pack.Name)
		if err != nil {
			// The pack exists on the platform, a solder outage is never final.
			return freshness.Empty[*technic.Latest](), transientOnly(err)
		}

		latest.Solder = solder
	}

	return freshness.Of(latest), nil
}

var (
	_ BatchSource[int, *curseforge.File] = (*curseForgeSource)(nil)
	_ EntitySource[*technic.Latest]      = (*technicSource)(nil)
	_ CurseForgeAPI                      = (*curseforge.Client)(nil)
	_ TechnicAPI                         = (*technic.Client)(nil)
)
