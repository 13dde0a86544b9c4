package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dedoppel",
	Short: "A CLI tool for finding visually duplicate images",
	Long: `Dedoppel fingerprints images with a perceptual hash and finds
near-duplicates between a reference collection and a target collection.
Camera raw files (NEF, CR2, ARW, DNG, ORF, RW2) are supported through
dcraw. Indexes can be saved as JSON and reused across runs.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Operation cancelled by user.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a
// batch stops dispatching work and exits without writing output.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
