package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/patchpilot/patchpilot/pkg/bridge"
	"github.com/patchpilot/patchpilot/pkg/config"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

var (
	cacheRoot          string
	cacheInvalidate    bool
	cacheInvalidateAll bool
	cacheAddr          string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or invalidate project context snapshots",
	Long: `Without flags, builds and prints the context snapshot the pipeline would
attach to a prompt for the project root: the structure sample, detected
frameworks, and declared dependencies.

--invalidate and --invalidate-all drop cached snapshots in a running
patchpilot serve process, reached over its WebSocket endpoint. Use them after
changing dependencies when you cannot wait out the snapshot TTL.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCache(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	cacheCmd.Flags().StringVar(&cacheRoot, "root", "", "Project root (default: working directory)")
	cacheCmd.Flags().BoolVar(&cacheInvalidate, "invalidate", false, "Drop the snapshot for the project root in a running serve process")
	cacheCmd.Flags().BoolVar(&cacheInvalidateAll, "invalidate-all", false, "Drop every snapshot in a running serve process")
	cacheCmd.Flags().StringVar(&cacheAddr, "addr", bridge.DefaultAddr, "Address of the running bridge")
}

func runCache() error {
	root := resolveProjectRoot(cacheRoot)

	if cacheInvalidate || cacheInvalidateAll {
		target := root
		if cacheInvalidateAll {
			target = ""
		}
		return sendInvalidate(cacheAddr, target)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	cache := workspace.NewCache(cfg.CacheTTL())
	snapshot, _ := cache.Get(root)
	printSnapshot(root, snapshot, cache.TTL())
	return nil
}

func printSnapshot(root string, snapshot workspace.Snapshot, ttl time.Duration) {
	fmt.Printf("Project: %s\n", root)
	fmt.Printf("Captured: %s (valid for %s)\n", snapshot.CapturedAt.Format(time.RFC3339), ttl)
	if snapshot.StructureSummary != "" {
		fmt.Printf("Structure: %s\n", snapshot.StructureSummary)
	} else {
		fmt.Println("Structure: (empty)")
	}
	if len(snapshot.DetectedPatterns) > 0 {
		fmt.Printf("Frameworks: %s\n", strings.Join(snapshot.DetectedPatterns, ", "))
	}
	if len(snapshot.DependencySummary) > 0 {
		fmt.Printf("Dependencies: %s\n", strings.Join(snapshot.DependencySummary, ", "))
	}
}

// sendInvalidate delivers one invalidate frame to a running bridge. An empty
// root drops every snapshot.
func sendInvalidate(addr, root string) error {
	url := bridgeWebsocketURL(addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("no running bridge at %s: %w", url, err)
	}
	defer conn.Close()

	frame := bridge.ClientFrame{Type: bridge.FrameInvalidate, ProjectRoot: root}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("could not send invalidate frame: %w", err)
	}
	if root == "" {
		fmt.Println("Invalidated all snapshots.")
	} else {
		fmt.Printf("Invalidated snapshot for %s.\n", root)
	}
	return nil
}
