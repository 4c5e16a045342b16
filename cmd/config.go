package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/pkg/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration",
	Long: `Prints the effective configuration after defaults and range clamping.
With --init, writes a default .patchpilot/config.json into the working
directory so the project gets its own settings instead of the home-directory
fallback.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConfig(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write a default config into the working directory")
}

func runConfig() error {
	if configInit {
		path, err := config.Init("")
		if err != nil {
			return fmt.Errorf("could not initialize config: %w", err)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	}

	cwdPath, homePath := config.Paths()
	for _, path := range []string{cwdPath, homePath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Config file: %s\n", path)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("could not render config: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
