package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/logging"
	"github.com/pbrit/mamba/internal/trash"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reclaim *.mamba_trash files left behind by in-use removals",
	Long: `Clean deletes the files a previous run could not remove and had to
quarantine under a *.mamba_trash name instead.

By default only the files recorded in each prefix's trash index
(conda-meta/mamba_trash.txt) are reclaimed. Files that are still in use
stay quarantined and are retried on the next run.

Use --deep to scan the whole prefix for stray trash files, --dry-run to
see what would be removed without making changes, and --watch to keep
running and reclaim trash as soon as it appears.`,
	RunE: runClean,
}

var (
	cleanPrefixes []string
	cleanDeep     bool
	cleanDryRun   bool
	cleanWatch    bool
)

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringArrayVarP(&cleanPrefixes, "prefix", "p", nil, "Prefix to clean; repeatable (default is $CONDA_PREFIX or the current directory)")
	cleanCmd.Flags().BoolVar(&cleanDeep, "deep", false, "Scan the whole prefix for trash files instead of trusting the index")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be removed without making changes")
	cleanCmd.Flags().BoolVarP(&cleanWatch, "watch", "w", false, "Keep watching the prefixes and reclaim trash as it appears")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	prefixes := cleanPrefixes
	if len(prefixes) == 0 {
		prefix, err := defaultPrefix()
		if err != nil {
			return err
		}
		prefixes = []string{prefix}
	}

	opts := trash.CleanOptions{
		Deep: cleanDeep,
		// keep_trash demotes every clean run to a report-only pass.
		DryRun: cleanDryRun || cfg.KeepTrash,
	}

	if cleanWatch {
		return watchPrefixes(cmd.Context(), prefixes, opts, log)
	}

	g := new(errgroup.Group)
	var (
		mu    sync.Mutex
		total trash.CleanStats
	)
	for _, prefix := range prefixes {
		prefix := prefix
		g.Go(func() error {
			stats := trash.Clean(prefix, opts, log)
			mu.Lock()
			total.Deleted += stats.Deleted
			total.Remaining += stats.Remaining
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if opts.DryRun {
		fmt.Printf("Would clean %d trash files across %d prefixes.\n", total.Deleted, len(prefixes))
		return nil
	}
	fmt.Printf("Cleaned %d trash files across %d prefixes. %d remaining.\n", total.Deleted, len(prefixes), total.Remaining)
	return nil
}

// watchPrefixes runs one janitor per prefix until a signal arrives or a
// watcher fails.
func watchPrefixes(parent context.Context, prefixes []string, opts trash.CleanOptions, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, prefix := range prefixes {
		j, err := trash.NewJanitor(prefix, opts, log)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", prefix, err)
		}
		defer j.Close()
		g.Go(func() error {
			return j.Run(ctx)
		})
	}

	fmt.Printf("Watching %d prefixes for trash. Press Ctrl-C to stop.\n", len(prefixes))
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
