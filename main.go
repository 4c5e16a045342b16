package main

import (
	"os"

	"github.com/patchpilot/patchpilot/cmd"
	"github.com/patchpilot/patchpilot/pkg/utils"
)

func main() {
	logger := utils.GetLogger(false)
	defer func() {
		// The logger may be the broken part, so report close failures on
		// stderr instead of through it.
		if err := logger.Close(); err != nil {
			os.Stderr.WriteString("error closing workspace log: " + err.Error() + "\n")
		}
	}()

	if err := cmd.Execute(); err != nil {
		logger.Logf("run failed: %v", err)
		os.Exit(1)
	}
}
