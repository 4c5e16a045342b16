package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set through -ldflags at release time; "dev" means a local build.
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the patchpilot build",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildLine())
		fmt.Printf("go %s, %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// buildLine folds the release metadata into one line, falling back to module
// build info so plain `go install` binaries still report something useful.
func buildLine() string {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	line := "patchpilot " + v
	switch {
	case gitCommit != "" && buildDate != "":
		line += fmt.Sprintf(" (%s, built %s)", gitCommit, buildDate)
	case gitCommit != "":
		line += fmt.Sprintf(" (%s)", gitCommit)
	case buildDate != "":
		line += fmt.Sprintf(" (built %s)", buildDate)
	}
	return line
}
