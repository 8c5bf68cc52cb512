package checker

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	domain "github.com/oshokin/packwatch/internal/domain/instance"
	"github.com/oshokin/packwatch/internal/freshness"
	"github.com/oshokin/packwatch/internal/provider/curseforge"
	"github.com/oshokin/packwatch/internal/provider/technic"
)

// Caches holds the freshness cache of every catalog, keyed by instance id.
type Caches struct {
	CurseForge *freshness.Cache[string, *curseforge.File]
	Technic    *freshness.Cache[string, *technic.Latest]
}

// NewCaches creates empty caches.
func NewCaches() *Caches {
	return &Caches{
		CurseForge: freshness.New[string, *curseforge.File](),
		Technic:    freshness.New[string, *technic.Latest](),
	}
}

// Status is the freshness of one instance as seen by readers.
type Status struct {
	// Instance is the described instance.
	Instance *domain.Instance
	// Latest is the newest known version, empty when none is known.
	Latest string
	// Known is false until a pass published a value, even an empty one.
	Known bool
	// UpdateAvailable reports whether Latest is newer than the installed version.
	UpdateAvailable bool
}

// Statuses reads the caches for every catalog-affiliated instance.
func (c *Caches) Statuses(instances []*domain.Instance) []Status {
	statuses := make([]Status, 0, len(instances))

	for _, inst := range instances {
		switch inst.Platform {
		case domain.PlatformCurseForge:
			statuses = append(statuses, c.curseForgeStatus(inst))
		case domain.PlatformTechnic:
			statuses = append(statuses, c.technicStatus(inst))
		case domain.PlatformNone:
		}
	}

	return statuses
}

func (c *Caches) curseForgeStatus(inst *domain.Instance) Status {
	status := Status{Instance: inst}

	record, published := c.CurseForge.Peek(inst.ID)
	if !published {
		return status
	}

	status.Known = true

	file, ok := record.Get()
	if !ok || file == nil {
		return status
	}

	status.Latest = file.DisplayName

	if status.Latest == "" {
		status.Latest = strconv.Itoa(file.ID)
	}

	if inst.CurseForge != nil {
		status.UpdateAvailable = file.ID > inst.CurseForge.FileID
	}

	return status
}

func (c *Caches) technicStatus(inst *domain.Instance) Status {
	status := Status{Instance: inst}

	record, published := c.Technic.Peek(inst.ID)
	if !published {
		return status
	}

	status.Known = true

	latest, ok := record.Get()
	if !ok || latest == nil {
		return status
	}

	status.Latest = latest.Version()
	status.UpdateAvailable = domain.HasUpdate(inst.Version, status.Latest)

	return status
}

// WriteStatus prints statuses as an aligned table.
func WriteStatus(w io.Writer, statuses []Status) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(table, "INSTANCE\tPROVIDER\tINSTALLED\tLATEST\tUPDATE"); err != nil {
		return fmt.Errorf("write status header: %w", err)
	}

	for _, status := range statuses {
		latest := status.Latest
		update := "no"

		switch {
		case !status.Instance.CheckForUpdates:
			update = "disabled"
		case !status.Known:
			latest = "-"
			update = "unknown"
		case latest == "":
			latest = "-"
		case status.UpdateAvailable:
			update = "yes"
		}

		_, err := fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n",
			status.Instance.DisplayName(),
			status.Instance.Platform,
			status.Instance.Version,
			latest,
			update)
		if err != nil {
			return fmt.Errorf("write status row: %w", err)
		}
	}

	if err := table.Flush(); err != nil {
		return fmt.Errorf("flush status table: %w", err)
	}

	return nil
}
