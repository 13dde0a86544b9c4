package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dedoppel/internal/cache"
	"dedoppel/internal/config"
	"dedoppel/internal/index"
	"dedoppel/internal/pipeline"
)

var hashCmd = &cobra.Command{
	Use:   "hash [flags] INPUTS...",
	Short: "Fingerprint images and emit a hash index",
	Long: `Fingerprint every image under the given inputs and emit the resulting
index as JSON: one key per fingerprint (hex), value the list of paths
sharing it.

Inputs may be folders (walked recursively), single image files, or
previously saved .json indexes, which are merged in without rehashing.

Examples:
  # Hash a folder to stdout
  dedoppel hash ~/Pictures

  # Hash two folders and an old index into one file, 8 workers
  dedoppel hash -t 8 -o hashes.json ~/Pictures ~/Backup old-hashes.json

  # Reuse fingerprints for unchanged files across runs
  dedoppel hash --cache fingerprints.db -o hashes.json ~/Pictures`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().StringP("output", "o", "", "Output file (JSON). If omitted, writes to stdout")
	hashCmd.Flags().IntP("threads", "t", config.DefaultThreads, "Number of hashing workers")
	hashCmd.Flags().String("cache", "", "Path to a sqlite fingerprint cache")
	hashCmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
}

// buildPipelineOptions resolves the hashing options shared by the hash
// and find commands. The returned cleanup closes the cache if one was
// opened.
func buildPipelineOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, func(), error) {
	threads := mustGetInt(cmd, "threads")
	if !cmd.Flags().Changed("threads") {
		threads = cfg.Threads
	}

	opts := pipeline.Options{
		Config:  cfg,
		Threads: threads,
		Quiet:   mustGetBool(cmd, "quiet"),
	}

	cleanup := func() {}
	if cachePath := mustGetString(cmd, "cache"); cachePath != "" {
		c, err := cache.Open(cachePath)
		if err != nil {
			return opts, cleanup, err
		}
		opts.Cache = c
		cleanup = func() { c.Close() }
	}
	return opts, cleanup, nil
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	opts, cleanup, err := buildPipelineOptions(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	idx, err := pipeline.Gather(ctx, args, opts)
	if err != nil {
		return err
	}

	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "Hashed %d distinct fingerprints\n", idx.Len())
	}
	return index.WriteFile(idx, mustGetString(cmd, "output"))
}
