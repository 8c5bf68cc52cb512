package technic

// Modpack is the platform description of a modpack.
type Modpack struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Minecraft   string `json:"minecraft"`
	URL         string `json:"url"`
	// Solder is the solder API base URL, empty for non-solder packs.
	Solder string `json:"solder"`
}

// SolderModpack is the solder description of a modpack.
type SolderModpack struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Recommended string   `json:"recommended"`
	Latest      string   `json:"latest"`
	Builds      []string `json:"builds"`
}

// Latest is the freshness descriptor published for a Technic instance.
// Solder is set only for instances using the solder sub-protocol.
type Latest struct {
	Modpack *Modpack
	Solder  *SolderModpack
}

// Version returns the newest version known for the pack.
func (l *Latest) Version() string {
	if l == nil {
		return ""
	}

	if l.Solder != nil {
		if l.Solder.Recommended != "" {
			return l.Solder.Recommended
		}

		return l.Solder.Latest
	}

	if l.Modpack != nil {
		return l.Modpack.Version
	}

	return ""
}
