package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pbrit/mamba/internal/lockfile"
	"github.com/pbrit/mamba/internal/run"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [--prefix P] -- command [args...]",
	Short: "Run a command while holding the prefix lock",
	Long: `Run acquires the lock on an environment prefix, executes the given
command with the lock held, and exits with the command's exit code.

Interrupts arriving while the command runs are forwarded to it; the lock
is released only after the command finishes. Use this to serialize
external tools against concurrent package operations on the same prefix.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var runPrefix string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runPrefix, "prefix", "p", "", "Prefix whose lock to hold (default is $CONDA_PREFIX or the current directory)")
}

func runRun(cmd *cobra.Command, args []string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	prefix := runPrefix
	if prefix == "" {
		prefix, err = defaultPrefix()
		if err != nil {
			return err
		}
	}

	// Interrupts cancel the wait for a busy lock. The child itself runs
	// under the parent context: once it starts, signals are forwarded to
	// it by run.Run rather than acted on here.
	waitCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := lockfile.Acquire(waitCtx, prefix)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", prefix, err)
	}

	code, runErr := run.Run(cmd.Context(), args[0], args[1:], run.Options{
		Env:    []string{"CONDA_PREFIX=" + prefix},
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}, log)

	if cerr := lock.Close(); cerr != nil {
		log.Warn("failed to release lock", "target", prefix, "error", cerr.Error())
	}
	if runErr != nil {
		return runErr
	}

	childExitCode = code
	return nil
}
