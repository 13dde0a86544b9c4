package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"dedoppel/internal/config"
	"dedoppel/internal/pipeline"
	"dedoppel/internal/search"
)

var findCmd = &cobra.Command{
	Use:   "find [flags] INPUTS...",
	Short: "Find near-duplicates of reference images in target inputs",
	Long: `Fingerprint a reference collection and a target collection, then
report every target image within the given Hamming distance of each
reference image. The result is a JSON object mapping reference paths to
the matching target paths.

Both collections accept folders, image files, and saved .json indexes.
A distance of 0 reports exact fingerprint matches only; values up to
about 10 catch recompressed, resized, and lightly edited copies. Passing
the same input as reference and target reports self-matches too.

Examples:
  # Exact duplicates of the originals within an export folder
  dedoppel find -r ~/Pictures/originals ~/Pictures/export

  # Near-duplicates at distance 8, saved to a file
  dedoppel find -d 8 -r originals.json -o dupes.json ~/Pictures

  # Two reference sources against two target folders
  dedoppel find -r ~/photos2023 -r extra.json ~/backup1 ~/backup2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringArrayP("reference", "r", nil, "Reference folder/image/JSON index (can be repeated)")
	findCmd.Flags().StringP("output", "o", "", "Output file (JSON). If omitted, writes to stdout")
	findCmd.Flags().IntP("threads", "t", config.DefaultThreads, "Number of hashing workers")
	findCmd.Flags().IntP("distance", "d", config.DefaultDistance, "Max Hamming distance (0 = exact match)")
	findCmd.Flags().String("cache", "", "Path to a sqlite fingerprint cache")
	findCmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")

	_ = findCmd.MarkFlagRequired("reference")
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	distance := mustGetInt(cmd, "distance")
	if !cmd.Flags().Changed("distance") {
		distance = cfg.Distance
	}
	if distance < 0 {
		return fmt.Errorf("distance must be non-negative, got %d", distance)
	}

	opts, cleanup, err := buildPipelineOptions(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	refIdx, err := pipeline.Gather(ctx, mustGetStringArray(cmd, "reference"), opts)
	if err != nil {
		return err
	}
	targetIdx, err := pipeline.Gather(ctx, args, opts)
	if err != nil {
		return err
	}

	bar := newSearchProgressBar(refIdx.Len(), opts.Quiet)
	var progress func()
	if bar != nil {
		progress = func() { bar.Add(1) }
	}

	result := search.Find(refIdx, targetIdx, distance, progress)
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "Found matches for %d reference images\n", len(result))
	}

	return writeResult(result, mustGetString(cmd, "output"))
}

// newSearchProgressBar creates a stderr progress bar for the search
// phase, or nil when quiet.
func newSearchProgressBar(count int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Searching for matches"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

// writeResult serializes the result mapping to dest, or stdout when
// dest is empty.
func writeResult(result search.Result, dest string) error {
	var w io.Writer = os.Stdout
	if dest != "" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("creating output %s: %w", dest, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
