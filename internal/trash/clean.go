package trash

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/logging"
)

// CleanStats summarizes a reclamation pass.
type CleanStats struct {
	// Deleted counts trash files removed, plus index entries whose file
	// was already gone.
	Deleted int
	// Remaining counts trash files that still could not be deleted.
	Remaining int
}

// CleanOptions controls a reclamation pass.
type CleanOptions struct {
	// Deep scans the whole prefix for trash files instead of trusting
	// the index.
	Deep bool
	// DryRun reports what would be deleted without touching anything.
	DryRun bool
}

// Clean reclaims quarantined files under prefix. In the default mode it
// walks the trash index and deletes what it can; entries that resist
// deletion are kept for the next pass. Deep mode rescans the prefix for
// stray .mamba_trash files the index does not know about.
//
// Clean never fails the whole pass: per-file problems are logged and
// counted in the returned stats.
func Clean(prefix string, opts CleanOptions, log *logging.Logger) CleanStats {
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithComponent("trash").WithPrefix(prefix)

	entries, err := Entries(prefix)
	if err != nil {
		log.Warn("failed to read trash index", "error", err.Error())
	}

	var stats CleanStats
	var remaining []string

	if !opts.Deep {
		for _, entry := range entries {
			full := entry
			if !filepath.IsAbs(full) {
				full = filepath.Join(prefix, entry)
			}
			if opts.DryRun {
				log.Info("Trash: would remove", "path", full)
				stats.Deleted++
				continue
			}
			log.Info("Trash: removing", "path", full)
			if !fsutil.Exists(full) || os.Remove(full) == nil {
				stats.Deleted++
				continue
			}
			log.Info("Trash: could not remove", "path", full)
			stats.Remaining++
			remaining = append(remaining, entry)
		}
	} else {
		for _, full := range scanTrash(prefix) {
			if opts.DryRun {
				log.Info("Trash: would remove", "path", full)
				stats.Deleted++
				continue
			}
			log.Info("Trash: removing", "path", full)
			if os.Remove(full) == nil {
				stats.Deleted++
				continue
			}
			stats.Remaining++
			rel, rerr := filepath.Rel(prefix, full)
			if rerr != nil {
				rel = full
			}
			remaining = append(remaining, rel)
		}
	}

	// Skip the rewrite when nothing changed, so a watching janitor is not
	// re-triggered by its own pass.
	if !opts.DryRun && (len(remaining) == 0 || !slices.Equal(entries, remaining)) {
		if werr := writeIndex(prefix, remaining); werr != nil {
			log.Warn("failed to rewrite trash index", "error", werr.Error())
		}
	}

	log.Info(fmt.Sprintf("Cleaned %d .mamba_trash files. %d remaining.", stats.Deleted, stats.Remaining))
	return stats
}

// scanTrash returns every path under prefix carrying the trash extension,
// directories included. Unreadable entries are skipped.
func scanTrash(prefix string) []string {
	var found []string
	_ = filepath.WalkDir(prefix, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != prefix && filepath.Ext(path) == TrashExt {
			found = append(found, path)
		}
		return nil
	})
	return found
}
