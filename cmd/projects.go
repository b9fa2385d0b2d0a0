// cmd/projects.go - Project listing and deletion commands
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal/output"
	"github.com/valpere/mapforge/internal/pipeline"
)

// projectsCmd represents the projects command
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List previously built projects",
	RunE:  runProjects,
}

// projectsDeleteCmd represents the projects delete command
var projectsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a built project and all its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	projectsCmd.Flags().Bool("json", false, "print the list as JSON")
}

func runProjects(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	projects, err := pipeline.ListProjects(a.cfg.Project.ProjectsDir)
	if err != nil {
		return err
	}

	if asJSON {
		w, err := output.NewStreamWriter(output.FormatJSON, true, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return w.Write(projects)
	}

	for _, p := range projects {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", p.Name, p.Dir)
	}
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	if err := pipeline.DeleteProject(a.cfg.Project.ProjectsDir, args[0]); err != nil {
		return err
	}
	a.logger.Info("project deleted", zap.String("project", args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
	return nil
}
