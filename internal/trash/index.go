package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbrit/mamba/internal/fsutil"
)

// indexFileName is the trash index kept under conda-meta.
const indexFileName = "mamba_trash.txt"

// indexPath returns the trash index location for a prefix.
func indexPath(prefix string) string {
	return filepath.Join(prefix, "conda-meta", indexFileName)
}

// Entries returns the quarantined paths recorded in the prefix trash
// index, relative to the prefix. A missing index yields no entries;
// blank lines are dropped.
func Entries(prefix string) ([]string, error) {
	path := indexPath(prefix)
	if !fsutil.Exists(path) {
		return nil, nil
	}
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// appendIndex records a quarantined file in the prefix trash index,
// stored relative to the prefix.
func appendIndex(prefix, trashFile string) error {
	rel, err := filepath.Rel(prefix, trashFile)
	if err != nil {
		rel = trashFile
	}
	return fsutil.AppendLine(indexPath(prefix), rel)
}

// writeIndex replaces the trash index with the given entries, deleting
// the index file when none remain.
func writeIndex(prefix string, entries []string) error {
	path := indexPath(prefix)
	if len(entries) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove trash index: %w", err)
		}
		return nil
	}
	return fsutil.WriteLines(path, entries)
}
