package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/pkg/config"
	"github.com/patchpilot/patchpilot/pkg/events"
	"github.com/patchpilot/patchpilot/pkg/history"
	"github.com/patchpilot/patchpilot/pkg/orchestration"
	"github.com/patchpilot/patchpilot/pkg/utils"
)

var (
	editInstruction    string
	editStartLine      int
	editEndLine        int
	editApply          bool
	editProvider       string
	editModel          string
	editSkipValidation bool
	editMaxRetries     int
	editRoot           string
	editQuiet          bool
)

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Rewrite a region of a file from a natural-language instruction",
	Long: `Runs the full pipeline for one edit: the instruction and the selected
region are classified, project context is attached when the request warrants
it, the model is invoked, and the candidate code is validated before it is
accepted. Failed attempts are retried with the validator's findings embedded
in the next prompt.

Without --start/--end the whole file is the selection. The file is only
written back with --apply; otherwise the diff is printed for review.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if strings.TrimSpace(editInstruction) == "" {
			fmt.Println("An instruction is required. Pass one with -i.")
			_ = cmd.Help()
			os.Exit(1)
		}
		if err := runEdit(args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	editCmd.Flags().StringVarP(&editInstruction, "instruction", "i", "", "What to change (required)")
	editCmd.Flags().IntVar(&editStartLine, "start", 0, "First line of the selection, 1-based (default: whole file)")
	editCmd.Flags().IntVar(&editEndLine, "end", 0, "Last line of the selection, inclusive")
	editCmd.Flags().BoolVar(&editApply, "apply", false, "Write the accepted code back to the file")
	editCmd.Flags().StringVar(&editProvider, "provider", "", "Model provider (openai, ollama)")
	editCmd.Flags().StringVarP(&editModel, "model", "m", "", "Model name to use with the provider")
	editCmd.Flags().BoolVar(&editSkipValidation, "skip-validation", false, "Accept the first completion without validating it")
	editCmd.Flags().IntVar(&editMaxRetries, "max-retries", -1, "Override the configured retry budget (0-5)")
	editCmd.Flags().StringVar(&editRoot, "root", "", "Project root for context and side effects (default: working directory)")
	editCmd.Flags().BoolVar(&editQuiet, "quiet", false, "Suppress progress output")
}

func runEdit(fileName string) error {
	logger := utils.GetLogger(false)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if editSkipValidation {
		cfg.EnableValidation = false
	}
	if editMaxRetries >= 0 {
		cfg.MaxRetries = editMaxRetries
	}

	document, err := utils.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", fileName, err)
	}
	selection, err := sliceRegion(document, editStartLine, editEndLine)
	if err != nil {
		return err
	}

	root := resolveProjectRoot(editRoot)
	p, err := buildPipeline(cfg, editProvider, editModel, root, logger)
	if err != nil {
		return err
	}

	progressDone := make(chan struct{})
	if editQuiet {
		close(progressDone)
	} else {
		ch := p.bus.Subscribe("cli")
		go func() {
			defer close(progressDone)
			printProgress(logger, ch)
		}()
	}

	result := p.orch.Run(context.Background(), orchestration.EditRequest{
		InstructionText:    editInstruction,
		SelectedCode:       selection,
		FullDocumentText:   document,
		DocumentIdentifier: fileName,
		ProjectRootPath:    root,
	})

	// Close the progress stream so its output lands before the summary.
	p.bus.Unsubscribe("cli")
	<-progressDone

	recordRun(p, fileName, selection, result)
	printSummary(result)

	switch result.State {
	case orchestration.StateFailedFatal:
		return fmt.Errorf("edit failed: %s", result.FailureReason)
	case orchestration.StateFailedExhausted:
		fmt.Println("\nBest-effort candidate (failed validation):")
		fmt.Println(result.FinalCode)
		printVerdictErrors(result)
		return fmt.Errorf("edit failed: %s", result.FailureReason)
	}

	if diff := history.RenderDiff(fileName, selection, result.FinalCode); diff != "" {
		fmt.Println()
		fmt.Println(diff)
	} else {
		fmt.Println("\nNo changes produced.")
		return nil
	}

	if !editApply {
		fmt.Println("Re-run with --apply to write the change.")
		return nil
	}
	if !logger.AskForConfirmation(fmt.Sprintf("Apply the change to %s?", fileName), true, false) {
		fmt.Println("Change discarded.")
		return nil
	}
	updated, err := spliceRegion(document, result.FinalCode, editStartLine, editEndLine)
	if err != nil {
		return err
	}
	if err := utils.SaveFile(fileName, updated); err != nil {
		return fmt.Errorf("could not write %s: %w", fileName, err)
	}
	fmt.Printf("Applied to %s.\n", fileName)
	return nil
}

// printProgress renders pipeline state changes while the run is in flight.
// Each step goes through the logger so it lands in the workspace log too.
func printProgress(logger *utils.Logger, ch <-chan events.Event) {
	for event := range ch {
		if event.Type != events.EventTypeStateChanged {
			continue
		}
		data, ok := event.Data.(map[string]interface{})
		if !ok {
			continue
		}
		state, _ := data["state"].(string)
		attempt, _ := data["attempt"].(int)
		step := "  " + strings.ReplaceAll(state, "_", " ")
		if attempt > 0 {
			step = fmt.Sprintf("%s (attempt %d)", step, attempt+1)
		}
		logger.LogProcessStep(step)
	}
}

func printSummary(result orchestration.Result) {
	fmt.Printf("\nRun %s: %s\n", result.RunID, result.State)
	fmt.Printf("  tier: %s  cache hit: %t  retries: %d  elapsed: %.2fs\n",
		utils.CapitalizeWords(string(result.Profile.Tier)), result.CacheHit, result.RetryCount, result.ElapsedSeconds)
	if result.Verdict != nil {
		fmt.Printf("  score: %d  errors: %d  warnings: %d\n",
			result.Verdict.QualityScore, len(result.Verdict.Errors), len(result.Verdict.Warnings))
	}
	fmt.Printf("  side effects: %s\n", effectSummary(result))
}

func printVerdictErrors(result orchestration.Result) {
	if result.Verdict == nil {
		return
	}
	for _, issue := range result.Verdict.Errors {
		fmt.Printf("  line %d, col %d: %s\n", issue.Line, issue.Column, issue.Message)
	}
}

func recordRun(p *pipeline, fileName, selection string, result orchestration.Result) {
	record := history.RunRecord{
		RunID:          result.RunID,
		Instruction:    editInstruction,
		File:           fileName,
		Tier:           string(result.Profile.Tier),
		Succeeded:      result.Succeeded,
		Validated:      result.Verdict != nil,
		RetryCount:     result.RetryCount,
		FailureReason:  result.FailureReason,
		ElapsedSeconds: result.ElapsedSeconds,
		OriginalCode:   selection,
		FinalCode:      result.FinalCode,
	}
	if result.Verdict != nil {
		record.QualityScore = result.Verdict.QualityScore
	}
	if err := p.store.AppendRun(record); err != nil {
		p.logger.LogError(fmt.Errorf("failed to record run: %w", err))
	}
}

// sliceRegion extracts a 1-based inclusive line range. Zero bounds select the
// whole document.
func sliceRegion(document string, start, end int) (string, error) {
	if start == 0 && end == 0 {
		return document, nil
	}
	lines := strings.Split(document, "\n")
	if err := checkRegion(lines, start, end); err != nil {
		return "", err
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// spliceRegion replaces the selected range with replacement, leaving the rest
// of the document untouched.
func spliceRegion(document, replacement string, start, end int) (string, error) {
	if start == 0 && end == 0 {
		return replacement, nil
	}
	lines := strings.Split(document, "\n")
	if err := checkRegion(lines, start, end); err != nil {
		return "", err
	}
	var out []string
	out = append(out, lines[:start-1]...)
	out = append(out, strings.Split(replacement, "\n")...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n"), nil
}

func checkRegion(lines []string, start, end int) error {
	// A trailing newline leaves an empty final element that editors do not
	// count as a line.
	lineCount := len(lines)
	if lineCount > 0 && lines[lineCount-1] == "" {
		lineCount--
	}
	if start < 1 || end < start || end > lineCount {
		return fmt.Errorf("invalid line range %d-%d for a %d-line file", start, end, lineCount)
	}
	return nil
}
