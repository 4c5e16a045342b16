package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/pkg/history"
)

var (
	historyLimit int
	historyRoot  string
	historyDiffs bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs and their diffs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runHistory(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyRoot, "root", "", "Project root (default: working directory)")
	historyCmd.Flags().BoolVar(&historyDiffs, "diffs", true, "Render the diff for each run")
}

func runHistory() error {
	store := history.NewStore(resolveProjectRoot(historyRoot))
	records, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Println()
		}
		status := "failed"
		if record.Succeeded {
			status = "succeeded"
		}
		fmt.Printf("%s  %s  %s\n", record.Timestamp.Format(time.RFC3339), record.RunID, status)
		fmt.Printf("  %s  tier=%s score=%d retries=%d elapsed=%.2fs\n",
			record.File, record.Tier, record.QualityScore, record.RetryCount, record.ElapsedSeconds)
		fmt.Printf("  instruction: %s\n", record.Instruction)
		if record.FailureReason != "" {
			fmt.Printf("  failure: %s\n", record.FailureReason)
		}
		if historyDiffs {
			if diff := history.RenderDiff(record.File, record.OriginalCode, record.FinalCode); diff != "" {
				fmt.Print(diff)
			}
		}
	}
	return nil
}
