package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the courses the token can see",
	Long: `Lists the active courses of the configured Canvas user. The IDs can
be passed to 'canvas-sync ingest' or stored in canvas.course_ids.`,
	RunE: runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	courses, err := svc.Courses.ListActiveCourses(cmd.Context())
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	if len(courses) == 0 {
		cmd.Println("No active courses found.")
		return nil
	}

	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, []string{c.ID, c.CourseCode, c.Name})
	}
	cmd.Println(renderTable([]string{"ID", "Code", "Name"}, rows))
	return nil
}
