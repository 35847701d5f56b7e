package cli

import (
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what has been ingested",
	Long: `Summarises the sync state: tracked items per content type, deleted
items and the last sync time of each configured course.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	stats := svc.Status.Stats()

	cmd.Println(titleStyle.Render("Sync state"))
	cmd.Println(renderTable([]string{"Metric", "Value"}, [][]string{
		{"Tracked items", strconv.Itoa(stats.TotalItems)},
		{"Active", strconv.Itoa(stats.ActiveItems)},
		{"Deleted", strconv.Itoa(stats.DeletedItems)},
		{"Courses", strconv.Itoa(stats.CoursesTracked)},
		{"Last full sync", orNever(stats.LastFullSync)},
	}))

	if len(stats.ByType) > 0 {
		rows := make([][]string, 0, len(stats.ByType))
		for _, t := range sortedTypes(stats.ByType) {
			rows = append(rows, []string{t.String(), strconv.Itoa(stats.ByType[t])})
		}
		cmd.Println(renderTable([]string{"Content type", "Items"}, rows))
	}

	courseIDs := configuredCourses()
	if len(courseIDs) > 0 {
		rows := make([][]string, 0, len(courseIDs))
		for _, id := range courseIDs {
			rows = append(rows, []string{id, orNever(svc.Status.LastSync(id))})
		}
		cmd.Println(renderTable([]string{"Course", "Last sync"}, rows))
	}
	return nil
}

// configuredCourses returns the default course IDs, sorted.
func configuredCourses() []string {
	if settingsService == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil
	}
	return slices.Sorted(slices.Values(settings.Canvas.CourseIDs))
}

func orNever(ts string) string {
	if ts == "" {
		return mutedStyle.Render("never")
	}
	return ts
}
