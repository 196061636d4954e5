// ghostctl inspects and maintains a Floppy Worm ghost store from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/floppyworm/ghost/internal/application/ghost"
	"github.com/floppyworm/ghost/internal/infrastructure/storage"
)

var appName string

var rootCmd = &cobra.Command{
	Use:   "ghostctl",
	Short: "Inspect and maintain stored ghost recordings",
	Long: `ghostctl operates on the ghost store of a local Floppy Worm
installation: listing saved ghosts, dumping a recording's frames, checking
a ghost against a level file, and cleaning up.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&appName, "app", "floppyworm",
		"application data directory name")
}

// openStore opens the gdata-backed ghost store for the configured app.
func openStore() (*ghost.Store, error) {
	backend, err := storage.OpenGData(appName)
	if err != nil {
		return nil, fmt.Errorf("open ghost storage: %w", err)
	}
	return ghost.NewStore(backend, ghost.StoreOptions{}), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
