package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/gnzdotmx/chapterize/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	outputDir     string
	keepLatest    int
	olderThanDays int
	cleanupDryRun bool
)

type runDir struct {
	name    string
	started time.Time
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old workflow output directories",
	Long:  `Remove old workflow run folders based on age or count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keepLatest <= 0 && olderThanDays <= 0 {
			return fmt.Errorf("one of --keep-latest or --older-than is required")
		}

		entries, err := os.ReadDir(outputDir)
		if err != nil {
			return fmt.Errorf("failed to read output directory: %w", err)
		}

		// Only directories named <workflow>-YYYYMMDD-HHMMSS are runs
		var runs []runDir
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if started, ok := workflow.ParseRunDirTime(entry.Name()); ok {
				runs = append(runs, runDir{name: entry.Name(), started: started})
			}
		}
		if len(runs) == 0 {
			utils.LogInfo("No workflow run directories found.")
			return nil
		}

		// oldest first
		sort.Slice(runs, func(i, j int) bool { return runs[i].started.Before(runs[j].started) })

		toDelete := selectForCleanup(runs, keepLatest, olderThanDays, time.Now())
		if len(toDelete) == 0 {
			utils.LogInfo("No directories to delete.")
			return nil
		}

		utils.LogInfo("Found %d directories to delete:", len(toDelete))
		for _, dir := range toDelete {
			utils.LogInfo("- %s", dir)
		}

		if cleanupDryRun {
			utils.LogInfo("Dry run - no directories were deleted.")
			return nil
		}

		for _, dir := range toDelete {
			fullPath := filepath.Join(outputDir, dir)
			utils.LogVerbose("Deleting %s...", fullPath)
			if err := os.RemoveAll(fullPath); err != nil {
				utils.LogError("Error deleting %s: %v", fullPath, err)
			}
		}

		utils.LogSuccess("Cleanup completed.")
		return nil
	},
}

// selectForCleanup returns the runs beyond the newest keep, plus runs older
// than the given number of days. runs must be sorted oldest first.
func selectForCleanup(runs []runDir, keep, olderThanDays int, now time.Time) []string {
	marked := make(map[string]bool)
	var out []string
	mark := func(name string) {
		if !marked[name] {
			marked[name] = true
			out = append(out, name)
		}
	}

	if keep > 0 && len(runs) > keep {
		for _, r := range runs[:len(runs)-keep] {
			mark(r.name)
		}
	}
	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, r := range runs {
			if r.started.Before(cutoff) {
				mark(r.name)
			}
		}
	}
	return out
}

func init() {
	cleanupCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Output directory to clean up (required)")
	cleanupCmd.Flags().IntVarP(&keepLatest, "keep-latest", "k", 0, "Keep this many latest directories")
	cleanupCmd.Flags().IntVarP(&olderThanDays, "older-than", "o", 0, "Delete directories older than this many days")
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "Show what would be deleted without actually deleting")

	_ = cleanupCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(cleanupCmd)
}
