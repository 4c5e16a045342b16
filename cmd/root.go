package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "patchpilot",
	Short: "LLM-backed code edit pipeline for editor integrations",
	Long: `Patchpilot turns a natural-language instruction plus a code selection into
a validated replacement in a single model round trip. Candidate code is
syntax-checked before it is accepted, broken attempts are retried with the
validator's findings embedded in the next prompt, and project-level actions
requested by the model (installing a package, creating a file) run under an
explicit permission policy.

Available commands:
  edit     - Rewrite a region of a file from an instruction
  serve    - WebSocket bridge for editor extensions
  cache    - Inspect or invalidate project context snapshots
  config   - Show or initialize the configuration
  history  - Recent runs with their diffs

For a quick start, try: patchpilot edit main.go -i "fix the off-by-one"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}
