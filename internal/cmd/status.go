package cmd

import (
	"fmt"

	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/lockfile"
	"github.com/pbrit/mamba/internal/trash"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the lock and trash state of a prefix",
	Long: `Display whether a prefix is currently locked and how many quarantined
trash files are waiting to be reclaimed. Status never modifies the
prefix.`,
	RunE: runStatus,
}

var statusPrefix string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusPrefix, "prefix", "p", "", "Prefix to inspect (default is $CONDA_PREFIX or the current directory)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	prefix := statusPrefix
	if prefix == "" {
		prefix, err = defaultPrefix()
		if err != nil {
			return err
		}
	}

	marker, err := lockfile.MarkerPath(prefix)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", prefix, err)
	}

	fmt.Printf("Prefix: %s\n", prefix)
	fmt.Printf("Lockfile: %s\n", marker)
	switch {
	case !fsutil.Lexists(marker):
		fmt.Println("Lock: none")
	case lockfile.IsLocked(marker):
		fmt.Println("Lock: held")
	default:
		fmt.Println("Lock: stale (marker present, no holder)")
	}

	entries, err := trash.Entries(prefix)
	if err != nil {
		return fmt.Errorf("failed to read trash index: %w", err)
	}
	fmt.Printf("Trash entries: %d\n", len(entries))
	for _, entry := range entries {
		fmt.Printf("  - %s\n", entry)
	}

	return nil
}
