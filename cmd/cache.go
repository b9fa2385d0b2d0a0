// cmd/cache.go - Source cache maintenance commands
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/mapforge/internal/pipeline"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached source datasets and run workspaces",
}

// cacheClearCmd represents the cache clear command
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the sources directory and the work directory",
	Long: `Remove every cached per-region source dataset and any leftover run
workspace. Both directories are recreated empty; built projects are kept.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	dirs := []string{a.cfg.Sources.Dir, a.cfg.Project.WorkDir}
	if err := pipeline.ClearCache(dirs...); err != nil {
		return err
	}
	a.logger.Info("cache cleared", zap.Strings("dirs", dirs))
	for _, dir := range dirs {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", dir)
	}
	return nil
}
