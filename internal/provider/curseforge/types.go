package curseforge

import "time"

// File is one downloadable release of a project.
type File struct {
	// ID is assigned by CurseForge and grows with upload order.
	ID int `json:"id"`
	// DisplayName is the release title.
	DisplayName string `json:"displayName"`
	// FileName is the uploaded archive name.
	FileName string `json:"fileName"`
	// FileDate is the upload time.
	FileDate time.Time `json:"fileDate"`
	// ReleaseType is 1 for release, 2 for beta, 3 for alpha.
	ReleaseType int `json:"releaseType"`
}

// Project is a CurseForge project (mod or modpack).
type Project struct {
	// ID is the project id.
	ID int `json:"id"`
	// Name is the project title.
	Name string `json:"name"`
	// Slug is the URL-friendly name.
	Slug string `json:"slug"`
	// LatestFiles lists the newest file per game version and release channel.
	LatestFiles []File `json:"latestFiles"`
}

// LatestFile returns the file with the numerically highest id, or nil when
// the project has no files.
//
// File ids are assumed to grow with release order across every release
// channel. CurseForge does not document this guarantee.
func (p *Project) LatestFile() *File {
	var latest *File

	for i := range p.LatestFiles {
		if latest == nil || p.LatestFiles[i].ID > latest.ID {
			latest = &p.LatestFiles[i]
		}
	}

	return latest
}

// getModsRequest is the body of POST /mods.
type getModsRequest struct {
	ModIDs []int `json:"modIds"`
}

// getModsResponse is the body returned by POST /mods.
type getModsResponse struct {
	Data []Project `json:"data"`
}
