package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
)

var (
	ingestFull  bool
	ingestReset bool
	ingestTypes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [course-id...]",
	Short: "Ingest course content into the vector index",
	Long: `Fetches content from the given courses, or the configured courses when
none are given, and writes new or changed chunks to the vector index.

Items whose Canvas timestamp has not advanced since the last run are
skipped unless --full is set. Items removed from Canvas lose their chunks.`,
	Example: `  canvas-sync ingest
  canvas-sync ingest 12345 --type page --type file
  canvas-sync ingest 12345 --full --reset`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "Reprocess every item, ignoring sync state")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "Clear sync state and indexes before ingesting")
	ingestCmd.Flags().StringSliceVarP(&ingestTypes, "type", "t", nil,
		"Content types to ingest (page, module, assignment, announcement, discussion, file, syllabus)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	types, err := parseTypes(ingestTypes)
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	req := driving.IngestRequest{
		CourseIDs:    args,
		ContentTypes: types,
		Mode:         domain.IngestModeIncremental,
		Reset:        ingestReset,
	}
	if ingestFull {
		req.Mode = domain.IngestModeFull
	}

	report, err := svc.Ingest.Ingest(cmd.Context(), req)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	failed := 0
	for _, cr := range report.Courses {
		if cr.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d courses finished with errors", failed, len(report.Courses))
	}
	return nil
}

// parseTypes converts --type values, keeping their order.
func parseTypes(names []string) ([]domain.ContentType, error) {
	var types []domain.ContentType
	for _, name := range names {
		t, err := domain.ParseContentType(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types, nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Println(titleStyle.Render(fmt.Sprintf("Ingest %s (%s)", report.RunID, report.Mode)))
	for _, cr := range report.Courses {
		cmd.Println()
		cmd.Printf("%s %s\n", titleStyle.Render(cr.CourseName), mutedStyle.Render("["+cr.CourseID+"]"))

		rows := make([][]string, 0, len(cr.Chunks)+1)
		for _, t := range sortedTypes(cr.Chunks) {
			rows = append(rows, []string{t.String(), strconv.Itoa(cr.Chunks[t])})
		}
		rows = append(rows, []string{"total", strconv.Itoa(cr.Total())})
		cmd.Println(renderTable([]string{"Content type", "Chunks"}, rows))

		if cr.Deleted > 0 {
			cmd.Printf("%d removed items cleaned up\n", cr.Deleted)
		}
		if cr.Err != nil {
			cmd.Println(errorStyle.Render("Errors: " + cr.Err.Error()))
		}
	}
	cmd.Println()
	cmd.Println(okStyle.Render(fmt.Sprintf("%d chunks written across %d courses", report.Total(), len(report.Courses))))
}

func sortedTypes(chunks map[domain.ContentType]int) []domain.ContentType {
	types := make([]domain.ContentType, 0, len(chunks))
	for t := range chunks {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
