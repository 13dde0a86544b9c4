// Package pipeline walks input roots, classifies files, and hashes
// image files across a bounded worker pool into a fingerprint index.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"dedoppel/internal/cache"
	"dedoppel/internal/config"
	"dedoppel/internal/decode"
	"dedoppel/internal/fingerprint"
	"dedoppel/internal/index"
)

type Options struct {
	Config  *config.Config
	Threads int          // worker count, defaults to config value
	Cache   *cache.Cache // optional fingerprint cache
	Quiet   bool         // suppress progress output
}

// Gather builds one index covering all inputs. Directories are walked
// recursively; persisted-index files are loaded and merged; everything
// else is decoded and fingerprinted on the worker pool. A file that
// fails to decode is reported and skipped without aborting the batch; a
// malformed persisted index aborts the run.
func Gather(ctx context.Context, inputs []string, opts Options) (*index.Index, error) {
	idx := index.New()

	var images []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", input, err)
		}

		switch {
		case info.IsDir():
			found, err := collectDir(idx, input, opts.Config)
			if err != nil {
				return nil, err
			}
			images = append(images, found...)
		case opts.Config.IsIndexExt(filepath.Ext(input)):
			loaded, err := index.Load(input)
			if err != nil {
				return nil, err
			}
			idx.Merge(loaded)
		default:
			images = append(images, input)
		}
	}

	if len(images) > 0 {
		if err := hashFiles(ctx, images, idx, opts); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// collectDir walks a directory, merging persisted indexes it finds and
// returning the image file candidates. Unreadable entries are reported
// and skipped.
func collectDir(idx *index.Index, root string, cfg *config.Config) ([]string, error) {
	var images []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s - cannot access (%v)\n", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if cfg.IsIndexExt(filepath.Ext(path)) {
			loaded, err := index.Load(path)
			if err != nil {
				return err
			}
			idx.Merge(loaded)
			return nil
		}
		images = append(images, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// hashFiles fingerprints every file across the worker pool, folding
// results into idx under a mutex. Per-file failures are reported and
// skipped; only cancellation stops the batch.
func hashFiles(ctx context.Context, files []string, idx *index.Index, opts Options) error {
	threads := opts.Threads
	if threads <= 0 {
		threads = opts.Config.Threads
	}

	bar := newHashProgressBar(len(files), opts.Quiet)

	group, ctx := errgroup.WithContext(ctx)
	paths := make(chan string)

	group.Go(func() error {
		defer close(paths)
		for _, p := range files {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case paths <- p:
			}
		}
		return nil
	})

	var mu sync.Mutex
	for range threads {
		group.Go(func() error {
			for p := range paths {
				if err := ctx.Err(); err != nil {
					return err
				}
				if h, ok := hashOne(ctx, p, opts); ok {
					mu.Lock()
					idx.Add(h, p)
					mu.Unlock()
				}
				if bar != nil {
					bar.Add(1)
				}
			}
			return nil
		})
	}

	err := group.Wait()
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	return err
}

// hashOne fingerprints a single file, consulting the cache when one is
// configured. Returns ok=false after reporting any per-file failure.
func hashOne(ctx context.Context, path string, opts Options) (fingerprint.Hash, bool) {
	var info os.FileInfo
	if opts.Cache != nil {
		var err error
		info, err = os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s - failed to read (%v)\n", path, err)
			return 0, false
		}
		if h, hit, err := opts.Cache.Get(path, info.ModTime(), info.Size()); err == nil && hit {
			return h, true
		}
	}

	img, err := decode.File(ctx, opts.Config, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s - failed to read (%v)\n", path, err)
		return 0, false
	}

	h := fingerprint.Compute(img)

	if opts.Cache != nil {
		if err := opts.Cache.Put(path, info.ModTime(), info.Size(), h); err != nil {
			fmt.Fprintf(os.Stderr, "%s - cache store failed (%v)\n", path, err)
		}
	}
	return h, true
}

// newHashProgressBar creates a stderr progress bar for hash computation,
// or nil when quiet. Progress stays off stdout so piped index output is
// never polluted.
func newHashProgressBar(count int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Hashing images"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}
