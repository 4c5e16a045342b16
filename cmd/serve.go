package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/pkg/bridge"
	"github.com/patchpilot/patchpilot/pkg/config"
	"github.com/patchpilot/patchpilot/pkg/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket bridge for editor extensions",
	Long: `Starts the long-lived bridge that editor extensions connect to. Clients
send edit requests as JSON frames and receive progress events plus the final
result. Project snapshots are cached across requests and invalidated when a
manifest changes on disk.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", bridge.DefaultAddr, "Listen address for the bridge")
}

func runServe() error {
	logger := utils.GetLogger(true)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	p, err := buildPipeline(cfg, "", "", "", logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Long-lived process: manifest edits should not have to wait out the TTL.
	if err := p.cache.Watch(ctx); err != nil {
		logger.LogError(fmt.Errorf("manifest watching disabled: %w", err))
	}

	server := bridge.NewServer(serveAddr, p.orch, p.cache, p.bus, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("patchpilot bridge listening on %s (ws endpoint: /ws)\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop.")

	<-ctx.Done()
	fmt.Println("\nShutting down.")
	return server.Shutdown()
}
