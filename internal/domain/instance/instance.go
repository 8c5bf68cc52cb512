package instance

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Platform names the catalog an instance originates from.
type Platform string

const (
	// PlatformNone marks instances created locally.
	PlatformNone Platform = ""
	// PlatformCurseForge marks instances installed from CurseForge.
	PlatformCurseForge Platform = "curseforge"
	// PlatformTechnic marks instances installed from the Technic Platform.
	PlatformTechnic Platform = "technic"
)

// CurseForgeRef identifies an instance on CurseForge.
type CurseForgeRef struct {
	// ProjectID is the CurseForge project id, zero when unknown.
	ProjectID int `yaml:"project_id"`
	// FileID is the installed file id.
	FileID int `yaml:"file_id"`
}

// TechnicRef identifies an instance on the Technic Platform.
type TechnicRef struct {
	// Slug is the modpack name used in API paths.
	Slug string `yaml:"slug"`
	// DisplayName is the human-readable modpack name.
	DisplayName string `yaml:"display_name"`
	// Solder marks packs served through a solder endpoint.
	Solder bool `yaml:"solder"`
}

// Instance is an installed modpack tracked for update freshness.
type Instance struct {
	// ID is the stable opaque identifier of the instance.
	ID string `yaml:"id"`
	// Name is shown to the user.
	Name string `yaml:"name"`
	// Platform is the catalog affiliation.
	Platform Platform `yaml:"platform"`
	// Version is the installed pack version.
	Version string `yaml:"version"`
	// CheckForUpdates enables update checks for this instance.
	CheckForUpdates bool `yaml:"check_for_updates"`
	// CurseForge is set for CurseForge instances.
	CurseForge *CurseForgeRef `yaml:"curseforge,omitempty"`
	// Technic is set for Technic instances.
	Technic *TechnicRef `yaml:"technic,omitempty"`
	// RuntimePath overrides the global runtime path when not empty.
	RuntimePath string `yaml:"runtime_path,omitempty"`
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}

	cloned := *i

	if i.CurseForge != nil {
		ref := *i.CurseForge
		cloned.CurseForge = &ref
	}

	if i.Technic != nil {
		ref := *i.Technic
		cloned.Technic = &ref
	}

	return &cloned
}

// CurseForgeProjectID returns the CurseForge project id when the instance carries a valid one.
func (i *Instance) CurseForgeProjectID() (int, bool) {
	if i.Platform != PlatformCurseForge || i.CurseForge == nil || i.CurseForge.ProjectID <= 0 {
		return 0, false
	}

	return i.CurseForge.ProjectID, true
}

// TechnicSlug returns the Technic slug when the instance carries a valid one.
func (i *Instance) TechnicSlug() (string, bool) {
	if i.Platform != PlatformTechnic || i.Technic == nil {
		return "", false
	}

	slug := strings.TrimSpace(i.Technic.Slug)

	return slug, slug != ""
}

// IsTechnicSolder reports whether the instance uses the solder sub-protocol.
func (i *Instance) IsTechnicSolder() bool {
	return i.Technic != nil && i.Technic.Solder
}

// DisplayName returns the most descriptive name available.
func (i *Instance) DisplayName() string {
	if i.Technic != nil && i.Technic.DisplayName != "" {
		return i.Technic.DisplayName
	}

	if i.Name != "" {
		return i.Name
	}

	return i.ID
}

// HasUpdate reports whether latest is newer than installed.
// Semantic versions are compared numerically, anything else by inequality.
func HasUpdate(installed, latest string) bool {
	installed = strings.TrimSpace(installed)
	latest = strings.TrimSpace(latest)

	if latest == "" {
		return false
	}

	if installed == "" {
		return true
	}

	installedVersion, installedErr := semver.NewVersion(installed)
	latestVersion, latestErr := semver.NewVersion(latest)

	if installedErr == nil && latestErr == nil {
		return latestVersion.GreaterThan(installedVersion)
	}

	return installed != latest
}
